package api

import (
	"net/http"

	"streamhost/media-api/model"
	"streamhost/media-api/service"

	"github.com/gin-gonic/gin"
)

func (a *API) QualityList(c *gin.Context) {
	account := c.MustGet("account").(*model.Account)

	c.JSON(http.StatusOK, gin.H{
		"ceiling": account.MaxBitrate,
		"tiers":   service.OfferableTiers(account.MaxBitrate),
	})
}
