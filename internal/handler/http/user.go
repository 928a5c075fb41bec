package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mateoabrbt/whistle-server/internal/service"
)

// UserHandler serves the authenticated user's own account.
type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	if authService == nil {
		panic("AuthService cannot be nil for UserHandler")
	}
	return &UserHandler{authService: authService}
}

// Me serves GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, user)
}
