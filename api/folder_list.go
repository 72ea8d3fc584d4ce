package api

import (
	"net/http"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

func (a *API) FolderList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	folders, err := a.Folders.List(account)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, folders)
}
