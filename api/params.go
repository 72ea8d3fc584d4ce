package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// paramID parses the :id path segment. Aborts the request itself on garbage
func paramID(c *gin.Context, requestID string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "ID is not a valid integer",
			"requestID": requestID,
		})
		return 0, false
	}

	return uint(id), true
}
