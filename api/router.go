// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"streamhost/media-api/cloudflare"
	"streamhost/media-api/db"
	"streamhost/media-api/middleware"
	"streamhost/media-api/model"
	"streamhost/media-api/remote"
	"streamhost/media-api/service"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Exec    remote.Executor
	Folders *service.FolderService
	Convert *service.ConvertService
}

func NewRouter() (*API, error) {
	a := &API{}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store, %w", err)
	}
	a.DB = db

	makeLogger()

	exec, err := remote.NewSSHExecutor(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote executor, %w", err)
	}
	a.Exec = exec

	var archiver *service.Archiver
	if viper.GetBool("archive.enabled") {
		r2, err := cloudflare.NewR2()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client, %w", err)
		}

		archiver = service.NewArchiver(r2, exec)
	}

	a.Folders = service.NewFolderService(db, exec)
	a.Convert = service.NewConvertService(db, exec, archiver)

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	auth := middleware.NewAuthMiddleware(db)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 			-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	folders := main.Group("/folders", auth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/folders			-> Lists the account's folders
		folders.GET("", a.FolderList)

		// POST /api/folders			-> Creates a folder and its remote directory
		folders.POST("", a.FolderCreate)

		// GET /api/folders/:id			-> Merged metadata + remote folder info
		folders.GET("/:id", a.FolderInfo)

		// PATCH /api/folders/:id		-> Renames a folder on both sides
		folders.PATCH("/:id", a.FolderRename)

		// DELETE /api/folders/:id		-> Deletes an empty folder on both sides
		folders.DELETE("/:id", a.FolderDelete)

		// POST /api/folders/:id/sync		-> Reconciles the remote directory
		folders.POST("/:id/sync", a.FolderSync)
	}

	videos := main.Group("/videos", auth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/videos			-> Lists videos of a folder
		videos.GET("", a.VideoList)

		// DELETE /api/videos/:id		-> Deletes a converted copy
		videos.DELETE("/:id", a.VideoDelete)

		// POST /api/videos/:id/convert		-> Dispatches a conversion
		videos.POST("/:id/convert", a.ConvertRequest)
	}

	conversions := main.Group("/conversions", auth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/conversions/status		-> Polls conversion state for a video
		conversions.GET("/status", a.ConvertStatus)

		// POST /api/conversions/batch		-> Fans one request out over several videos
		conversions.POST("/batch", a.ConvertBatch)
	}

	quality := main.Group("/quality", auth)
	{
		// GET /api/quality			-> Tiers offerable under the account's plan
		quality.GET("", cacheForAccount(30), a.QualityList)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

// cacheForAccount caches per account, not per URI. The tier list depends on
// the plan ceiling, a URI-keyed cache would leak one account's tiers to
// another
func cacheForAccount(sec int) gin.HandlerFunc {
	return cache.Cache(store, time.Second*time.Duration(sec),
		cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
			account := c.MustGet("account").(*model.Account)

			return true, cache.Strategy{
				CacheKey: fmt.Sprintf("%s:%d", c.Request.URL.Path, account.ID),
			}
		}),
	)
}
