package api

import (
	"net/http"
	"strconv"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

func (a *API) ConvertStatus(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	videoID, err := strconv.ParseUint(c.Query("video"), 10, 32)
	if err != nil || videoID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "video is not a valid integer",
			"requestID": requestID,
		})
		return
	}

	status, err := a.Convert.Status(c.Request.Context(), account, uint(videoID))
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
