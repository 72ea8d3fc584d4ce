package api

import (
	"net/http"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

func (a *API) FolderSync(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	id, ok := paramID(c, requestID)
	if !ok {
		return
	}

	err := a.Folders.Sync(c.Request.Context(), account, id)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.Status(http.StatusOK)
}
