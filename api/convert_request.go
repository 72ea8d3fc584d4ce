package api

import (
	"net/http"

	"streamhost/media-api/model"
	"streamhost/media-api/service"

	"github.com/gin-gonic/gin"
)

func (a *API) ConvertRequest(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	id, ok := paramID(c, requestID)
	if !ok {
		return
	}

	var req service.QualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to read request body",
			"requestID": requestID,
		})
		return
	}

	accepted, err := a.Convert.Request(c.Request.Context(), account, id, req)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	// The transcode itself runs detached, this only acknowledges dispatch
	c.JSON(http.StatusAccepted, accepted)
}
