package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"streamhost/media-api/model"
	"streamhost/media-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AZ = A - Z as in alphabetic same for ZA
var validSortOpts = []string{"newest", "oldest", "az", "za", "size-asc", "size-desc"}

type videoEntry struct {
	model.Video
	RemotePath string `json:"remote_path"`
}

func (a *API) VideoList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	folderIDStr := c.Query("folder")
	folderID, err := strconv.ParseUint(folderIDStr, 10, 32)
	if err != nil || folderID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "folder is not a valid integer",
			"requestID": requestID,
		})
		return
	}

	pageStr := c.DefaultQuery("page", "0")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Page is not a valid positive integer",
			"requestID": requestID,
		})
		return
	}

	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Limit must be between 1 and 100",
			"requestID": requestID,
		})
		return
	}

	sort := strings.ToLower(c.DefaultQuery("sort", "newest"))
	if !slices.Contains(validSortOpts, sort) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid sorting option",
			"requestID": requestID,
		})
		return
	}

	order := ""

	switch sort {
	case "newest":
		order = "created_at desc"
	case "oldest":
		order = "created_at asc"
	case "az":
		order = "name"
	case "za":
		order = "name desc"
	case "size-asc":
		order = "size asc"
	case "size-desc":
		order = "size desc"
	}

	var folder model.Folder
	err = a.DB.
		Where("account_id = ? AND id = ?", account.ID, folderID).
		First(&folder).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Folder not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	offset := page * limit
	var videos []model.Video

	err = a.DB.
		Where("account_id = ? AND folder_id = ?", account.ID, folder.ID).
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&videos).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "internal_server_error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to lookup folder videos", zap.Error(err))
		return
	}

	entries := make([]videoEntry, 0, len(videos))
	for _, v := range videos {
		entries = append(entries, videoEntry{
			Video:      v,
			RemotePath: service.VideoPath(account.Login, folder.Name, v.FileName),
		})
	}

	c.JSON(http.StatusOK, entries)
}
