package service_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

func TestMessageService_Send(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.room(t, a, b)

	msg, err := f.msgSvc.Send(ctx, a, roomID, "  hi bob  ")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", msg.Content)
	assert.Equal(t, a, msg.SenderID)
	assert.Equal(t, roomID, msg.RoomID)

	events := f.rec.Named(domain.EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, roomID, events[0].RoomID)
	assert.Same(t, msg, events[0].Payload)
}

func TestMessageService_Send_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, outsider := f.user(t, "alice"), f.user(t, "eve")
	roomID := f.room(t, a)

	_, err := f.msgSvc.Send(ctx, outsider, roomID, "hello")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	_, err = f.msgSvc.Send(ctx, a, roomID, "   ")
	assert.Equal(t, service.KindInvalid, service.KindOf(err))

	_, err = f.msgSvc.Send(ctx, a, roomID, strings.Repeat("é", 4001))
	assert.Equal(t, service.KindInvalid, service.KindOf(err))

	assert.Empty(t, f.rec.Events())
}

func TestMessageService_Modify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.room(t, a, b)
	msgID := f.message(t, roomID, a)

	_, err := f.msgSvc.Modify(ctx, b, roomID, msgID, "hijacked")
	assert.ErrorIs(t, err, service.ErrMessageNotFound, "only the sender may edit")

	otherRoom := f.room(t, a, b)
	_, err = f.msgSvc.Modify(ctx, a, otherRoom, msgID, "moved")
	assert.ErrorIs(t, err, service.ErrMessageNotFound)

	updated, err := f.msgSvc.Modify(ctx, a, roomID, msgID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	events := f.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMessageModified, events[0].Event)
}

func TestMessageService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.room(t, a, b)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		m := &domain.Message{
			ID:        fmt.Sprintf("m%02d", i),
			RoomID:    roomID,
			SenderID:  a,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.messages.Create(ctx, m))
	}

	page1, err := f.msgSvc.List(ctx, b, roomID, 1, 0)
	require.NoError(t, err)
	require.Len(t, page1, 20)
	assert.Equal(t, "m24", page1[0].ID, "newest first")

	page2, err := f.msgSvc.List(ctx, b, roomID, 2, 20)
	require.NoError(t, err)
	require.Len(t, page2, 5)
	assert.Equal(t, "m00", page2[4].ID)

	_, err = f.msgSvc.List(ctx, b, roomID, math.MaxInt, 100)
	assert.Equal(t, service.KindInvalid, service.KindOf(err), "offsets that would overflow are rejected")

	_, err = f.msgSvc.List(ctx, f.user(t, "eve"), roomID, 1, 10)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}
