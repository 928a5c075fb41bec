package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/service"
)

// Context keys set by Authenticate.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyIdentity = "identity"
	ContextKeyToken    = "token"
)

// TokenVerifier resolves a raw bearer token to an identity.
type TokenVerifier interface {
	Verify(token string) (*service.Identity, error)
}

// RevocationChecker reports whether a raw token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ErrMissingToken means neither the Authorization header nor the token query
// parameter carried a credential.
var ErrMissingToken = errors.New("missing bearer token")

// Authenticate verifies the bearer token and stores the identity in the gin
// context. The token is read from "Authorization: Bearer ..." and, failing
// that, from the "token" query parameter used by WebSocket clients.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("TokenVerifier cannot be nil for Authenticate middleware")
	}
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: no usable token")
			abortUnauthorized(c, "Authorization token is required")
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyUserID, identity.UserID)
		logrus.WithField("user_id", identity.UserID).Debug("Auth middleware: user authenticated")
		c.Next()
	}
}

// RejectRevoked must run after Authenticate. A revoked token is refused even
// when it is otherwise valid and unexpired.
func RejectRevoked(checker RevocationChecker) gin.HandlerFunc {
	if checker == nil {
		panic("RevocationChecker cannot be nil for RejectRevoked middleware")
	}
	return func(c *gin.Context) {
		token := c.GetString(ContextKeyToken)
		if token == "" {
			abortUnauthorized(c, "Authorization token is required")
			return
		}
		revoked, err := checker.IsRevoked(c.Request.Context(), token)
		if err != nil {
			logrus.WithError(err).Error("Auth middleware: revocation check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
			return
		}
		if revoked {
			logrus.WithField("user_id", c.GetString(ContextKeyUserID)).Warn("Auth middleware: revoked token presented")
			abortUnauthorized(c, service.ErrTokenRevoked.Message)
			return
		}
		c.Next()
	}
}

// Authenticated is the standard chain for protected routes.
func Authenticated(verifier TokenVerifier, checker RevocationChecker) []gin.HandlerFunc {
	return []gin.HandlerFunc{Authenticate(verifier), RejectRevoked(checker)}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (*service.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*service.Identity)
	return identity, ok && identity != nil
}

func extractToken(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("malformed Authorization header")
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
