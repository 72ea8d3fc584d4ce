package api

import (
	"net/http"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

type folderRenameBody struct {
	Name string `json:"name" binding:"required"`
}

func (a *API) FolderRename(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	id, ok := paramID(c, requestID)
	if !ok {
		return
	}

	var body folderRenameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "New folder name is missing",
			"requestID": requestID,
		})
		return
	}

	folder, err := a.Folders.Rename(c.Request.Context(), account, id, body.Name)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, folder)
}
