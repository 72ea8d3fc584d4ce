package api

import (
	"net/http"

	"streamhost/media-api/model"
	"streamhost/media-api/service"

	"github.com/gin-gonic/gin"
)

type convertBatchBody struct {
	VideoIDs []uint                 `json:"video_ids" binding:"required"`
	Quality  service.QualityRequest `json:"quality_request"`
}

const maxBatchSize = 50

func (a *API) ConvertBatch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	var body convertBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to read request body",
			"requestID": requestID,
		})
		return
	}

	if len(body.VideoIDs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No video ids provided",
			"requestID": requestID,
		})
		return
	}

	if len(body.VideoIDs) > maxBatchSize {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Too many video ids provided",
			"requestID": requestID,
		})
		return
	}

	results := a.Convert.RequestBatch(c.Request.Context(), account, body.VideoIDs, body.Quality)

	c.JSON(http.StatusAccepted, gin.H{
		"results": results,
	})
}
