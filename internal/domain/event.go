package domain

// Outbound real-time event names. Every event is scoped to one room.
const (
	EventNewMessage        = "newMessage"
	EventMessageModified   = "messageModified"
	EventUserJoinedRoom    = "userJoinedRoom"
	EventUserLeftRoom      = "userLeftRoom"
	EventMessageDelivered  = "messageDelivered"
	EventMessageRead       = "messageRead"
	EventMessagesDelivered = "messagesDelivered"
	EventMessagesRead      = "messagesRead"
	EventTyping            = "typing"
)

// MembershipEvent is the payload of userJoinedRoom / userLeftRoom.
type MembershipEvent struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// TypingEvent is the payload of typing.
type TypingEvent struct {
	UserID   string `json:"userId"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}
