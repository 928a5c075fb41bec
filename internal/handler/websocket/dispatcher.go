package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/hub"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

type eventHandler func(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error)

// EventDispatcher routes inbound frames to the services and answers on the
// same session. Failures become an "exception" frame; the session stays open.
type EventDispatcher struct {
	rooms       *service.RoomService
	messages    *service.MessageService
	statuses    *service.StatusEngine
	broadcaster service.Broadcaster

	handlers map[string]eventHandler
}

func NewEventDispatcher(rooms *service.RoomService, messages *service.MessageService, statuses *service.StatusEngine, broadcaster service.Broadcaster) *EventDispatcher {
	if rooms == nil || messages == nil || statuses == nil || broadcaster == nil {
		panic("services and Broadcaster cannot be nil for EventDispatcher")
	}
	d := &EventDispatcher{rooms: rooms, messages: messages, statuses: statuses, broadcaster: broadcaster}
	d.handlers = map[string]eventHandler{
		EventConnectToAllRooms: d.connectToAllRooms,
		EventConnectToRoom:     d.connectToRoom,
		EventJoinRoom:          d.joinRoom,
		EventLeaveRoom:         d.leaveRoom,
		EventSendMessage:       d.sendMessage,
		EventModifyMessage:     d.modifyMessage,
		EventReceiveMessage:    d.receiveMessage,
		EventReadMessage:       d.readMessage,
		EventReadRoom:          d.readRoom,
		EventDeliverAll:        d.deliverAll,
		EventTyping:            d.typing,
	}
	return d
}

// Dispatch implements hub.Dispatcher.
func (d *EventDispatcher) Dispatch(ctx context.Context, c *hub.Client, raw []byte) {
	if c.State() == hub.StateClosed {
		return
	}

	var frame inboundFrame
	if err := decodeStrict(raw, &frame); err != nil || frame.Event == "" {
		c.Reply(EventException, frame.ID, exceptionPayload{Message: "malformed frame"})
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"client_id": c.ID(),
		"user_id":   c.UserID(),
		"event":     frame.Event,
	})

	handle, ok := d.handlers[frame.Event]
	if !ok {
		c.Reply(EventException, frame.ID, exceptionPayload{Message: fmt.Sprintf("unknown event %q", frame.Event)})
		return
	}

	result, err := handle(ctx, c, frame.Data)
	if err != nil {
		if service.KindOf(err) == service.KindInternal {
			logCtx.WithError(err).Error("WS event failed")
		} else {
			logCtx.WithError(err).Debug("WS event rejected")
		}
		c.Reply(EventException, frame.ID, exceptionPayload{Message: service.PublicMessage(err)})
		return
	}
	if !c.Reply(frame.Event, frame.ID, result) {
		logCtx.Warn("Reply dropped, session closed or queue full")
	}
}

// bind decodes data strictly into dst and runs the binding validator on it.
func bind(data json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("{}")
	}
	if err := decodeStrict(data, dst); err != nil {
		return service.Invalidf("invalid payload: %v", err)
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return service.Invalidf("invalid payload: %v", err)
	}
	return nil
}

func decodeStrict(raw []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (d *EventDispatcher) connectToAllRooms(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	if err := bind(data, &emptyRequest{}); err != nil {
		return nil, err
	}
	ids, err := d.rooms.ListRoomIDs(ctx, c.UserID())
	if err != nil {
		return nil, err
	}
	c.Subscribe(ids...)
	return roomIDsPayload{RoomIDs: ids}, nil
}

func (d *EventDispatcher) connectToRoom(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req roomRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	room, err := d.rooms.EnsureMember(ctx, c.UserID(), req.RoomID)
	if err != nil {
		return nil, err
	}
	c.Subscribe(room.ID)
	return room, nil
}

// joinRoom and leaveRoom update every live session of the user through the
// room service, this one included.
func (d *EventDispatcher) joinRoom(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req roomRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	room, err := d.rooms.JoinRoom(ctx, c.UserID(), req.RoomID)
	if err != nil {
		return nil, err
	}
	c.Subscribe(room.ID)
	return room, nil
}

func (d *EventDispatcher) leaveRoom(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req roomRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	if err := d.rooms.LeaveRoom(ctx, c.UserID(), req.RoomID); err != nil {
		return nil, err
	}
	c.Unsubscribe(req.RoomID)
	return domain.MembershipEvent{UserID: c.UserID(), RoomID: req.RoomID}, nil
}

func (d *EventDispatcher) sendMessage(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req sendMessageRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	return d.messages.Send(ctx, c.UserID(), req.RoomID, req.Content)
}

func (d *EventDispatcher) modifyMessage(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req modifyMessageRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	return d.messages.Modify(ctx, c.UserID(), req.RoomID, req.ID, req.Content)
}

func (d *EventDispatcher) receiveMessage(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req messageStatusRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	return d.statuses.MarkDelivered(ctx, req.RoomID, req.MessageID, c.UserID())
}

func (d *EventDispatcher) readMessage(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req messageStatusRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	return d.statuses.MarkRead(ctx, req.RoomID, req.MessageID, c.UserID())
}

func (d *EventDispatcher) readRoom(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req roomRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	n, err := d.statuses.MarkRoomRead(ctx, req.RoomID, c.UserID())
	if err != nil {
		return nil, err
	}
	return countPayload{Count: n}, nil
}

func (d *EventDispatcher) deliverAll(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	if err := bind(data, &emptyRequest{}); err != nil {
		return nil, err
	}
	n, err := d.statuses.MarkAllRoomsDelivered(ctx, c.UserID())
	if err != nil {
		return nil, err
	}
	return countPayload{Count: n}, nil
}

func (d *EventDispatcher) typing(ctx context.Context, c *hub.Client, data json.RawMessage) (interface{}, error) {
	var req typingRequest
	if err := bind(data, &req); err != nil {
		return nil, err
	}
	if _, err := d.rooms.EnsureMember(ctx, c.UserID(), req.RoomID); err != nil {
		return nil, err
	}
	event := domain.TypingEvent{UserID: c.UserID(), RoomID: req.RoomID, IsTyping: req.IsTyping}
	d.broadcaster.Broadcast(req.RoomID, domain.EventTyping, event)
	return event, nil
}
