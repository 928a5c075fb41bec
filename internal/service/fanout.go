package service

// Broadcaster fans a room-scoped event out to every live subscriber of the room.
// Implementations must not block on slow subscribers.
type Broadcaster interface {
	Broadcast(roomID, event string, payload interface{})
}

// RoomSubscriber keeps live sessions of a user in step with persisted membership.
type RoomSubscriber interface {
	SubscribeUser(userID string, roomIDs ...string)
	UnsubscribeUser(userID, roomID string)
}
