package api

import (
	"net/http"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

func (a *API) FolderInfo(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	id, ok := paramID(c, requestID)
	if !ok {
		return
	}

	info, err := a.Folders.Info(c.Request.Context(), account, id)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
