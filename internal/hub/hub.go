package hub

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Package-level WebSocket constants shared by the hub and its clients.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 64 * 1024

	// DefaultSendQueueSize is the per-client outbound buffer when none is configured.
	DefaultSendQueueSize = 256
)

// Envelope is the JSON frame written to clients. ID echoes the request id
// on replies and is empty on room broadcasts.
type Envelope struct {
	Event string      `json:"event"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data"`
}

// HubMessage is a lifecycle request processed by the Run loop.
type HubMessage struct {
	Type   string // "register" or "unregister"
	Client *Client
}

// Hub tracks live clients and which rooms each one is subscribed to.
// Delivery is best-effort: a client whose queue is full is disconnected
// rather than allowed to slow down the others.
type Hub struct {
	messageChan chan HubMessage
	quit        chan struct{}
	stopOnce    sync.Once

	// roomsMu guards rooms, clients and every Client's rooms/closed fields.
	roomsMu sync.RWMutex
	rooms   map[string]map[*Client]bool
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		quit:        make(chan struct{}),
		rooms:       make(map[string]map[*Client]bool),
		clients:     make(map[*Client]bool),
	}
}

// Run processes register/unregister requests until Stop is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")
	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: received unknown message type: %s", msg.Type)
			}
		case <-h.quit:
			h.closeAll()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop ends the Run loop and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// QueueMessage enqueues a lifecycle request without blocking.
// It returns false when the queue is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"client_id":    msg.Client.ID(),
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) Register(c *Client) bool   { return h.QueueMessage(HubMessage{Type: "register", Client: c}) }
func (h *Hub) Unregister(c *Client) bool { return h.QueueMessage(HubMessage{Type: "unregister", Client: c}) }

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.roomsMu.Lock()
	if !c.closed {
		h.clients[c] = true
	}
	h.roomsMu.Unlock()
	c.logCtx().Info("Client registered to Hub")
}

// unregisterClient drops c from every room and closes its queue under the
// write lock, so no broadcast can send on the closed channel.
func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	h.roomsMu.Lock()
	already := c.closed
	h.detachLocked(c)
	h.roomsMu.Unlock()

	if !already {
		c.logCtx().Info("Client unregistered from Hub")
	}
}

func (h *Hub) detachLocked(c *Client) {
	for roomID := range c.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	c.rooms = make(map[string]struct{})
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for c := range h.clients {
		h.detachLocked(c)
	}
}

// Subscribe adds c to the given rooms. A closed client is ignored.
func (h *Hub) Subscribe(c *Client, roomIDs ...string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if c.closed {
		return
	}
	for _, roomID := range roomIDs {
		members, ok := h.rooms[roomID]
		if !ok {
			members = make(map[*Client]bool)
			h.rooms[roomID] = members
		}
		members[c] = true
		c.rooms[roomID] = struct{}{}
	}
}

// Unsubscribe removes c from roomID.
func (h *Hub) Unsubscribe(c *Client, roomID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	h.unsubscribeLocked(c, roomID)
}

func (h *Hub) unsubscribeLocked(c *Client, roomID string) {
	delete(c.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SubscribeUser subscribes every live session of userID.
func (h *Hub) SubscribeUser(userID string, roomIDs ...string) {
	for _, c := range h.sessionsOf(userID) {
		h.Subscribe(c, roomIDs...)
	}
}

// UnsubscribeUser removes every live session of userID from roomID.
func (h *Hub) UnsubscribeUser(userID, roomID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for c := range h.clients {
		if c.userID == userID {
			h.unsubscribeLocked(c, roomID)
		}
	}
}

func (h *Hub) sessionsOf(userID string) []*Client {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	var out []*Client
	for c := range h.clients {
		if c.userID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast marshals {"event", "data"} once and enqueues it for every client
// subscribed to roomID. It never blocks; clients with a full queue are
// disconnected.
func (h *Hub) Broadcast(roomID, event string, payload interface{}) {
	message, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "event": event}).WithError(err).Error("Failed to marshal broadcast")
		return
	}

	var slow []*Client
	h.roomsMu.RLock()
	members := h.rooms[roomID]
	for c := range members {
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	recipients := len(members)
	h.roomsMu.RUnlock()

	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":         roomID,
		"event":           event,
		"recipient_count": recipients,
	})
	logCtx.Debug("Broadcast to room")

	for _, c := range slow {
		logCtx.WithField("client_id", c.ID()).Warn("Client send queue full, disconnecting")
		if !h.Unregister(c) {
			// Run loop is saturated; detach directly.
			h.roomsMu.Lock()
			h.detachLocked(c)
			h.roomsMu.Unlock()
		}
	}
}

// ActiveRoomIDs returns the rooms with at least one subscriber, sorted.
func (h *Hub) ActiveRoomIDs() []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.clients)
}

// enqueue is the safe single-client send used for replies.
func (h *Hub) enqueue(c *Client, message []byte) bool {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}
