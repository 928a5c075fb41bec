package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/mateoabrbt/whistle-server/internal/handler/http"
	wsHandler "github.com/mateoabrbt/whistle-server/internal/handler/websocket"
	"github.com/mateoabrbt/whistle-server/internal/middleware"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// Routes holds everything NewRouter mounts.
type Routes struct {
	Auth      *httpHandler.AuthHandler
	Users     *httpHandler.UserHandler
	Rooms     *httpHandler.RoomHandler
	Messages  *httpHandler.MessageHandler
	WebSocket *wsHandler.WebSocketHandler

	Verifier    middleware.TokenVerifier
	Revocations middleware.RevocationChecker
	Limiter     repository.RateLimiter // nil disables rate limiting

	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigin      string
}

// NewRouter builds the gin engine. Protected routes run
// RateLimit -> Authenticate -> RejectRevoked -> handler.
func NewRouter(log *logrus.Logger, r Routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(r.CORSOrigin))
	if r.Limiter != nil {
		router.Use(middleware.RateLimit(r.Limiter, r.RateLimitMax, r.RateLimitWindow))
	}

	protected := middleware.Authenticated(r.Verifier, r.Revocations)

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", r.Auth.Register)
		authRoutes.POST("/login", r.Auth.Login)
		authRoutes.POST("/refresh", r.Auth.Refresh)
		authRoutes.POST("/logout", append(protected, r.Auth.Logout)...)
	}
	userRoutes := api.Group("/users", protected...)
	{
		userRoutes.GET("/me", r.Users.Me)
	}
	roomRoutes := api.Group("/rooms", protected...)
	{
		roomRoutes.POST("", r.Rooms.CreateRoom)
		roomRoutes.GET("", r.Rooms.ListRooms)
		roomRoutes.GET("/:id", r.Rooms.GetRoom)
		roomRoutes.GET("/:id/messages", r.Rooms.ListMessages)
		roomRoutes.POST("/:id/join", r.Rooms.JoinRoom)
		roomRoutes.POST("/:id/leave", r.Rooms.LeaveRoom)
	}
	messageRoutes := api.Group("/message", protected...)
	{
		messageRoutes.POST("/send", r.Messages.Send)
		messageRoutes.POST("/delivered", r.Messages.Delivered)
		messageRoutes.POST("/read", r.Messages.Read)
		messageRoutes.POST("/delivered/all", r.Messages.DeliveredAll)
		messageRoutes.POST("/read/room", r.Messages.ReadRoom)
	}
	router.GET("/ws", append(protected, r.WebSocket.HandleConnection)...)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	return router
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" && c.Query("token") == "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
