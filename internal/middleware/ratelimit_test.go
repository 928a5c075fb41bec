package middleware

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mateoabrbt/whistle-server/internal/repository/mocks"
)

func limitedRouter(limiter *mocks.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(limiter, 5, time.Second))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit(t *testing.T) {
	limiter := mocks.NewRateLimiter(t)
	r := limitedRouter(limiter)

	limiter.On("Allow", mock.Anything, "192.0.2.1", 5, time.Second).Return(true, nil).Once()
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)

	limiter.On("Allow", mock.Anything, "192.0.2.1", 5, time.Second).Return(false, nil).Once()
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := mocks.NewRateLimiter(t)
	r := limitedRouter(limiter)

	limiter.On("Allow", mock.Anything, mock.Anything, 5, time.Second).Return(false, errors.New("redis down")).Once()
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
}

func TestRateLimit_PanicsOnBadConfig(t *testing.T) {
	limiter := mocks.NewRateLimiter(t)
	assert.Panics(t, func() { RateLimit(nil, 5, time.Second) })
	assert.Panics(t, func() { RateLimit(limiter, 0, time.Second) })
	assert.Panics(t, func() { RateLimit(limiter, 5, 0) })
}
