package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, *Client, []byte) {}

// newTestClient builds a client without a connection; tests read its queue directly.
func newTestClient(h *Hub, userID string, queueSize int) *Client {
	return NewClient(h, nil, userID, userID, nopDispatcher{}, queueSize)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func registered(t *testing.T, h *Hub, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		require.True(t, h.Register(c))
	}
	require.Eventually(t, func() bool { return h.ClientCount() == len(clients) }, time.Second, 5*time.Millisecond)
}

func readEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "queue closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func assertNothingQueued(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func TestHub_BroadcastReachesOnlyRoomSubscribers(t *testing.T) {
	h := startHub(t)
	a, b, c := newTestClient(h, "a", 4), newTestClient(h, "b", 4), newTestClient(h, "c", 4)
	registered(t, h, a, b, c)

	h.Subscribe(a, "r1")
	h.Subscribe(b, "r1", "r2")
	h.Subscribe(c, "r2")

	h.Broadcast("r1", "newMessage", map[string]string{"content": "hi"})

	for _, cl := range []*Client{a, b} {
		env := readEnvelope(t, cl)
		assert.Equal(t, "newMessage", env.Event)
		assert.Empty(t, env.ID)
		assert.Equal(t, map[string]interface{}{"content": "hi"}, env.Data)
	}
	assertNothingQueued(t, c)
	assert.Equal(t, []string{"r1", "r2"}, h.ActiveRoomIDs())
}

func TestHub_BroadcastKeepsOrderPerRoom(t *testing.T) {
	h := startHub(t)
	a := newTestClient(h, "a", 16)
	registered(t, h, a)
	h.Subscribe(a, "r1")

	for i := 0; i < 10; i++ {
		h.Broadcast("r1", "messageDelivered", i)
	}
	for i := 0; i < 10; i++ {
		assert.EqualValues(t, i, readEnvelope(t, a).Data)
	}
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	h := startHub(t)
	slow, fast := newTestClient(h, "slow", 1), newTestClient(h, "fast", 8)
	registered(t, h, slow, fast)
	h.Subscribe(slow, "r1")
	h.Subscribe(fast, "r1")

	h.Broadcast("r1", "newMessage", 1)
	h.Broadcast("r1", "newMessage", 2) // slow's queue is full

	require.Eventually(t, func() bool { return slow.State() == StateClosed }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.ClientCount())
	assert.Equal(t, 1, len(h.rooms["r1"]))

	assert.EqualValues(t, 1, readEnvelope(t, fast).Data)
	assert.EqualValues(t, 2, readEnvelope(t, fast).Data)

	// The frame queued before the overflow is still drained, then the queue is closed.
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_UnregisterDropsClientEverywhere(t *testing.T) {
	h := startHub(t)
	a, b := newTestClient(h, "a", 4), newTestClient(h, "b", 4)
	registered(t, h, a, b)
	h.Subscribe(a, "r1", "r2")
	h.Subscribe(b, "r2")

	require.True(t, h.Unregister(a))
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"r2"}, h.ActiveRoomIDs())
	assert.Equal(t, StateClosed, a.State())
	assert.Empty(t, a.RoomIDs())
	assert.False(t, a.Reply("x", "1", nil), "replies to a closed session are refused")

	// Subscribing a closed client is ignored, broadcasting does not panic.
	h.Subscribe(a, "r1")
	h.Broadcast("r2", "typing", nil)
	assert.Equal(t, "typing", readEnvelope(t, b).Event)

	// Unregistering twice is harmless.
	require.True(t, h.Unregister(a))
}

func TestHub_SubscribeAndUnsubscribeUser(t *testing.T) {
	h := startHub(t)
	phone, laptop, other := newTestClient(h, "u1", 4), newTestClient(h, "u1", 4), newTestClient(h, "u2", 4)
	registered(t, h, phone, laptop, other)

	h.SubscribeUser("u1", "r1", "r2")
	assert.Equal(t, []string{"r1", "r2"}, phone.RoomIDs())
	assert.Equal(t, []string{"r1", "r2"}, laptop.RoomIDs())
	assert.Empty(t, other.RoomIDs())
	assert.Equal(t, StateSubscribed, phone.State())
	assert.Equal(t, StateAuthenticated, other.State())

	h.UnsubscribeUser("u1", "r1")
	assert.Equal(t, []string{"r2"}, phone.RoomIDs())
	assert.Equal(t, []string{"r2"}, laptop.RoomIDs())
	assert.Equal(t, []string{"r2"}, h.ActiveRoomIDs())
}

func TestHub_ReplyCarriesRequestID(t *testing.T) {
	h := startHub(t)
	a := newTestClient(h, "a", 4)
	registered(t, h, a)

	require.True(t, a.Reply("sendMessage", "req-7", map[string]string{"id": "m1"}))
	env := readEnvelope(t, a)
	assert.Equal(t, "sendMessage", env.Event)
	assert.Equal(t, "req-7", env.ID)
}

func TestHub_StopClosesEveryClient(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	a := newTestClient(h, "a", 4)
	registered(t, h, a)
	h.Subscribe(a, "r1")

	h.Stop()
	h.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateClosed, a.State())
	assert.Empty(t, h.ActiveRoomIDs())
}

func TestHub_ConcurrentBroadcastAndUnregister(t *testing.T) {
	h := startHub(t)
	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(h, "u", 2)
	}
	registered(t, h, clients...)
	for _, c := range clients {
		h.Subscribe(c, "r1")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.Broadcast("r1", "typing", i)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			h.Unregister(c)
		}
	}()
	wg.Wait()

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.ActiveRoomIDs())
}
