package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mateoabrbt/whistle-server/internal/middleware"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// CountResponse is returned by the batch status endpoints.
type CountResponse struct {
	Count int64 `json:"count"`
}

// currentUserID returns the authenticated user or answers 401.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextKeyUserID)
	if userID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	return userID, true
}
