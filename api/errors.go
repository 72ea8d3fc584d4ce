package api

import (
	"net/http"

	"streamhost/media-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var reasonCodes = map[service.Reason]int{
	service.ReasonInvalidQuality:     http.StatusBadRequest,
	service.ReasonInvalidName:        http.StatusBadRequest,
	service.ReasonExceedsCeiling:     http.StatusBadRequest,
	service.ReasonDuplicateName:      http.StatusConflict,
	service.ReasonFolderNotEmpty:     http.StatusConflict,
	service.ReasonConversionExists:   http.StatusConflict,
	service.ReasonSourceNotFound:     http.StatusNotFound,
	service.ReasonNotFound:           http.StatusNotFound,
	service.ReasonNoHostAvailable:    http.StatusServiceUnavailable,
	service.ReasonRemoteCreateFailed: http.StatusBadGateway,
	service.ReasonRemoteRenameFailed: http.StatusBadGateway,
	service.ReasonRemoteChannel:      http.StatusBadGateway,
}

// abortWithError maps a classified service error to a status code. Anything
// unclassified is an internal error and only the classification leaves the
// process
func abortWithError(c *gin.Context, requestID string, err error) {
	reason := service.ReasonOf(err)

	code, ok := reasonCodes[reason]
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "internal_server_error",
			"requestID": requestID,
		})

		zap.L().Error("Unclassified error", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.AbortWithStatusJSON(code, gin.H{
		"error":     string(reason),
		"message":   err.Error(),
		"requestID": requestID,
	})
}
