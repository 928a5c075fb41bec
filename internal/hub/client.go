package hub

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of a session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "connecting"
	}
}

// Dispatcher handles one inbound text frame of a session. Frames of the same
// session are dispatched one at a time, in arrival order.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Client, raw []byte)
}

// Client is one live WebSocket session. The identity is fixed at creation,
// which only happens after the handshake credential has been verified.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	userID   string
	username string
	send     chan []byte

	dispatcher Dispatcher

	// Guarded by hub.roomsMu.
	rooms  map[string]struct{}
	closed bool
}

// NewClient creates an authenticated session. queueSize <= 0 selects
// DefaultSendQueueSize.
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string, dispatcher Dispatcher, queueSize int) *Client {
	if hub == nil || dispatcher == nil {
		panic("Hub and Dispatcher cannot be nil for Client")
	}
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	return &Client{
		id:         uuid.NewString(),
		hub:        hub,
		conn:       conn,
		userID:     userID,
		username:   username,
		send:       make(chan []byte, queueSize),
		dispatcher: dispatcher,
		rooms:      make(map[string]struct{}),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump reads frames and hands them to the dispatcher sequentially.
// Disconnecting unregisters the client but does not cancel a dispatch
// already in progress.
func (c *Client) ReadPump() {
	defer func() {
		if !c.hub.Unregister(c) {
			c.hub.roomsMu.Lock()
			c.hub.detachLocked(c)
			c.hub.roomsMu.Unlock()
		}
		c.conn.Close()
		c.logCtx().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx().Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logCtx().Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		if c.State() == StateClosed {
			return
		}
		c.dispatcher.Dispatch(context.Background(), c, message)
	}
}

// WritePump drains the send queue to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logCtx().Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}

// Reply sends a frame to this client only. It returns false when the session
// is closed or its queue is full.
func (c *Client) Reply(event, id string, data interface{}) bool {
	message, err := json.Marshal(Envelope{Event: event, ID: id, Data: data})
	if err != nil {
		c.logCtx().WithError(err).Error("Failed to marshal reply")
		return false
	}
	return c.hub.enqueue(c, message)
}

// Subscribe and Unsubscribe change this session's room set through the hub.
func (c *Client) Subscribe(roomIDs ...string) { c.hub.Subscribe(c, roomIDs...) }
func (c *Client) Unsubscribe(roomID string)   { c.hub.Unsubscribe(c, roomID) }

// RoomIDs returns the subscribed rooms, sorted.
func (c *Client) RoomIDs() []string {
	c.hub.roomsMu.RLock()
	defer c.hub.roomsMu.RUnlock()
	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Client) State() State {
	c.hub.roomsMu.RLock()
	defer c.hub.roomsMu.RUnlock()
	switch {
	case c.closed:
		return StateClosed
	case len(c.rooms) > 0:
		return StateSubscribed
	default:
		return StateAuthenticated
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) UserID() string   { return c.userID }
func (c *Client) Username() string { return c.username }

func (c *Client) logCtx() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"client_id": c.id, "user_id": c.userID})
}
