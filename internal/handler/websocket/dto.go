package websocket

import "encoding/json"

// Inbound event names.
const (
	EventConnectToAllRooms = "connectToAllRooms"
	EventConnectToRoom     = "connectToRoom"
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventSendMessage       = "sendMessage"
	EventModifyMessage     = "modifyMessage"
	EventReceiveMessage    = "receiveMessage"
	EventReadMessage       = "readMessage"
	EventReadRoom          = "readRoom"
	EventDeliverAll        = "deliverAll"
	EventTyping            = "typing"

	// EventException carries a failed request back to its sender.
	EventException = "exception"
)

// inboundFrame is {"event": ..., "id": ..., "data": {...}}.
type inboundFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

type sendMessageRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type modifyMessageRequest struct {
	ID      string `json:"id" binding:"required"`
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type messageStatusRequest struct {
	RoomID    string `json:"roomId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
}

type typingRequest struct {
	RoomID   string `json:"roomId" binding:"required"`
	IsTyping bool   `json:"isTyping"`
}

type emptyRequest struct{}

type exceptionPayload struct {
	Message string `json:"message"`
}

type countPayload struct {
	Count int64 `json:"count"`
}

type roomIDsPayload struct {
	RoomIDs []string `json:"roomIds"`
}
