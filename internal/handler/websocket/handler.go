package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/hub"
	"github.com/mateoabrbt/whistle-server/internal/middleware"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

// WebSocketHandler upgrades authenticated requests and starts a session.
// It must be mounted behind the Authenticate and RejectRevoked middleware so
// a bad or revoked credential is refused with 401 before the upgrade.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	roomService *service.RoomService
	dispatcher  hub.Dispatcher
	queueSize   int
}

// NewWebSocketHandler creates the handler. allowedOrigin "" or "*" accepts
// any origin.
func NewWebSocketHandler(h *hub.Hub, roomService *service.RoomService, dispatcher hub.Dispatcher, allowedOrigin string, queueSize int) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if roomService == nil || dispatcher == nil {
		panic("RoomService and Dispatcher cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		hub:         h,
		roomService: roomService,
		dispatcher:  dispatcher,
		queueSize:   queueSize,
	}
}

// HandleConnection serves GET /ws.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		logrus.Warn("WS Handler: identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", identity.UserID)

	// Bulk read before the upgrade so a storage failure is still a plain HTTP error.
	roomIDs, err := h.roomService.ListRoomIDs(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, identity.UserID, identity.Username, h.dispatcher, h.queueSize)
	// Subscribed before registration so a registered session is never missing its rooms.
	client.Subscribe(roomIDs...)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: hub message channel full, failed to register client")
		for _, roomID := range roomIDs {
			client.Unsubscribe(roomID)
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"))
		conn.Close()
		return
	}
	client.Run()

	logCtx.WithFields(logrus.Fields{"client_id": client.ID(), "rooms": len(roomIDs)}).Info("WS Handler: session started")
}

func originChecker(allowed string) func(r *http.Request) bool {
	allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Scheme+"://"+u.Host, allowed)
	}
}
