package bootstrap

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
}

func (ts *testServer) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

// connect opens a session and waits until the hub has registered want sessions.
func (ts *testServer) connect(t *testing.T, acc account, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := ts.dial(t, acc.Token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ts.hub.ClientCount() == want }, time.Second, 5*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event, id string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(gin.H{"event": event, "id": id, "data": data}))
}

// next reads frames until one named event arrives.
func next(t *testing.T, conn *websocket.Conn, event string) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f
		}
	}
}

func TestWebSocket_HandshakeRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, 0)
	alice := ts.signup(t, "alice")

	_, resp, err := ts.dial(t, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = ts.dial(t, "not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/auth/logout", alice.Token, nil, nil))
	_, resp, err = ts.dial(t, alice.Token)
	require.Error(t, err, "a revoked token cannot open a session")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, ts.hub.ClientCount())
}

func TestWebSocket_SessionSubscribesToMemberRooms(t *testing.T) {
	ts := newTestServer(t, 0)
	alice, bob := ts.signup(t, "alice"), ts.signup(t, "bob")
	roomID := ts.createRoom(t, alice, bob.ID)

	bobConn := ts.connect(t, bob, 1)
	assert.Equal(t, []string{roomID}, ts.hub.ActiveRoomIDs())

	var msg struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/message/send", alice.Token, gin.H{"roomId": roomID, "content": "hi"}, &msg))

	f := next(t, bobConn, "newMessage")
	assert.Empty(t, f.ID)
	assert.Contains(t, string(f.Data), msg.ID)
}

func TestWebSocket_SendDeliverRead(t *testing.T) {
	ts := newTestServer(t, 0)
	alice, bob := ts.signup(t, "alice"), ts.signup(t, "bob")
	roomID := ts.createRoom(t, alice, bob.ID)
	aliceConn := ts.connect(t, alice, 1)
	bobConn := ts.connect(t, bob, 2)

	send(t, aliceConn, "sendMessage", "1", gin.H{"roomId": roomID, "content": "hello bob"})
	reply := next(t, aliceConn, "sendMessage")
	assert.Equal(t, "1", reply.ID)
	var msg struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(reply.Data, &msg))
	next(t, bobConn, "newMessage")

	send(t, bobConn, "receiveMessage", "2", gin.H{"roomId": roomID, "messageId": msg.ID})
	delivered := next(t, aliceConn, "messageDelivered")
	var status struct {
		UserID      string     `json:"userId"`
		DeliveredAt *time.Time `json:"deliveredAt"`
		ReadAt      *time.Time `json:"readAt"`
	}
	require.NoError(t, json.Unmarshal(delivered.Data, &status))
	assert.Equal(t, bob.ID, status.UserID)
	assert.NotNil(t, status.DeliveredAt)
	assert.Nil(t, status.ReadAt)
	assert.Equal(t, "2", next(t, bobConn, "receiveMessage").ID)

	send(t, bobConn, "readMessage", "3", gin.H{"roomId": roomID, "messageId": msg.ID})
	read := next(t, aliceConn, "messageRead")
	require.NoError(t, json.Unmarshal(read.Data, &status))
	assert.NotNil(t, status.ReadAt)

	send(t, aliceConn, "modifyMessage", "4", gin.H{"id": msg.ID, "roomId": roomID, "content": "hello again"})
	modified := next(t, bobConn, "messageModified")
	assert.Contains(t, string(modified.Data), "hello again")

	send(t, bobConn, "typing", "5", gin.H{"roomId": roomID, "isTyping": true})
	typing := next(t, aliceConn, "typing")
	assert.JSONEq(t, `{"userId":"`+bob.ID+`","roomId":"`+roomID+`","isTyping":true}`, string(typing.Data))
}

func TestWebSocket_ExceptionsKeepSessionOpen(t *testing.T) {
	ts := newTestServer(t, 0)
	alice, eve := ts.signup(t, "alice"), ts.signup(t, "eve")
	roomID := ts.createRoom(t, alice)
	conn := ts.connect(t, eve, 1)

	send(t, conn, "sendMessage", "1", gin.H{"roomId": roomID, "content": "hi"})
	f := next(t, conn, "exception")
	assert.Equal(t, "1", f.ID)
	assert.JSONEq(t, `{"message":"room not found"}`, string(f.Data))

	send(t, conn, "sendMessage", "2", gin.H{"roomId": roomID, "content": "hi", "extra": true})
	f = next(t, conn, "exception")
	assert.Equal(t, "2", f.ID)
	assert.Contains(t, string(f.Data), "invalid payload")

	send(t, conn, "joinRoom", "3", gin.H{})
	assert.Equal(t, "3", next(t, conn, "exception").ID)

	send(t, conn, "fly", "4", gin.H{})
	assert.Contains(t, string(next(t, conn, "exception").Data), "unknown event")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Contains(t, string(next(t, conn, "exception").Data), "malformed frame")

	// Still usable.
	send(t, conn, "joinRoom", "5", gin.H{"roomId": roomID})
	assert.Equal(t, "5", next(t, conn, "joinRoom").ID)
	assert.Equal(t, []string{roomID}, ts.hub.ActiveRoomIDs())
}

func TestWebSocket_JoinLeaveAndBatches(t *testing.T) {
	ts := newTestServer(t, 0)
	alice, bob := ts.signup(t, "alice"), ts.signup(t, "bob")
	r1 := ts.createRoom(t, alice)
	r2 := ts.createRoom(t, alice)
	for _, room := range []string{r1, r1, r1, r2, r2, r2, r2, r2} {
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/message/send", alice.Token, gin.H{"roomId": room, "content": "x"}, nil))
	}

	aliceConn := ts.connect(t, alice, 1)
	bobConn := ts.connect(t, bob, 2)

	send(t, bobConn, "joinRoom", "1", gin.H{"roomId": r1})
	next(t, bobConn, "joinRoom")
	joined := next(t, aliceConn, "userJoinedRoom")
	assert.JSONEq(t, `{"userId":"`+bob.ID+`","roomId":"`+r1+`"}`, string(joined.Data))
	send(t, bobConn, "joinRoom", "2", gin.H{"roomId": r2})
	next(t, bobConn, "joinRoom")

	send(t, bobConn, "deliverAll", "3", gin.H{})
	reply := next(t, bobConn, "deliverAll")
	assert.JSONEq(t, `{"count":8}`, string(reply.Data))

	sizes := map[int]bool{}
	for i := 0; i < 2; i++ {
		f := next(t, aliceConn, "messagesDelivered")
		var rows []json.RawMessage
		require.NoError(t, json.Unmarshal(f.Data, &rows))
		sizes[len(rows)] = true
	}
	assert.Equal(t, map[int]bool{3: true, 5: true}, sizes)

	send(t, bobConn, "readRoom", "4", gin.H{"roomId": r1})
	assert.JSONEq(t, `{"count":3}`, string(next(t, bobConn, "readRoom").Data))
	next(t, aliceConn, "messagesRead")

	send(t, bobConn, "leaveRoom", "5", gin.H{"roomId": r2})
	next(t, bobConn, "leaveRoom")
	left := next(t, aliceConn, "userLeftRoom")
	assert.JSONEq(t, `{"userId":"`+bob.ID+`","roomId":"`+r2+`"}`, string(left.Data))

	send(t, bobConn, "connectToAllRooms", "6", gin.H{})
	assert.JSONEq(t, `{"roomIds":["`+r1+`"]}`, string(next(t, bobConn, "connectToAllRooms").Data))

	send(t, bobConn, "connectToRoom", "7", gin.H{"roomId": r2})
	assert.Equal(t, "7", next(t, bobConn, "exception").ID)
}
