package api

import (
	"net/http"

	"streamhost/media-api/model"

	"github.com/gin-gonic/gin"
)

type folderCreateBody struct {
	Name string `json:"name" binding:"required"`
}

func (a *API) FolderCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	account := c.MustGet("account").(*model.Account)

	var body folderCreateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Folder name is missing",
			"requestID": requestID,
		})
		return
	}

	folder, err := a.Folders.Create(c.Request.Context(), account, body.Name)
	if err != nil {
		abortWithError(c, requestID, err)
		return
	}

	c.JSON(http.StatusCreated, folder)
}
