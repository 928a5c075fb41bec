package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/service"
)

// HandleServiceError maps a service error kind onto an HTTP status. Internal
// errors carry an opaque message; their detail was logged by the service.
func HandleServiceError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		ErrorResponse(c, http.StatusUnauthorized, service.PublicMessage(err))
	case service.KindNotFound:
		ErrorResponse(c, http.StatusNotFound, service.PublicMessage(err))
	case service.KindConflict:
		ErrorResponse(c, http.StatusConflict, service.PublicMessage(err))
	case service.KindInvalid:
		ErrorResponse(c, http.StatusBadRequest, service.PublicMessage(err))
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// bindingError answers a request whose body or query failed validation.
func bindingError(c *gin.Context, err error) {
	logrus.WithError(err).WithField("path", c.FullPath()).Warn("Invalid input")
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
}
