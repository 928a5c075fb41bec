package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	httpHandler "github.com/mateoabrbt/whistle-server/internal/handler/http"
	wsHandler "github.com/mateoabrbt/whistle-server/internal/handler/websocket"
	"github.com/mateoabrbt/whistle-server/internal/hub"
	gormpersistence "github.com/mateoabrbt/whistle-server/internal/infra/persistence/gorm"
	"github.com/mateoabrbt/whistle-server/internal/infra/setup"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

// memoryCache is an in-process RevocationCache.
type memoryCache struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryCache) IsRevoked(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[hash]
	return ok && time.Now().Before(exp), nil
}

func (m *memoryCache) MarkRevoked(_ context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[hash] = time.Now().Add(ttl)
	return nil
}

// countingLimiter allows the first max hits per key.
type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

type testServer struct {
	router *gin.Engine
	server *httptest.Server
	hub    *hub.Hub
	db     *gorm.DB
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, setup.MigrateDB(db))

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	transactor := gormpersistence.NewGormTransactor(db)

	h := hub.NewHub()
	go h.Run()

	revocations := service.NewRevocationService(
		gormpersistence.NewGormRevokedTokenRepository(db),
		&memoryCache{revoked: map[string]time.Time{}},
	)
	authService, err := service.NewAuthService(userRepo, revocations, "test-secret", 1, 24)
	require.NoError(t, err)
	roomService := service.NewRoomService(transactor, roomRepo, userRepo, h, h)
	messageService := service.NewMessageService(roomRepo, messageRepo, h)
	statusEngine := service.NewStatusEngine(transactor, roomRepo, h)
	dispatcher := wsHandler.NewEventDispatcher(roomService, messageService, statusEngine, h)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	routes := Routes{
		Auth:        httpHandler.NewAuthHandler(authService),
		Users:       httpHandler.NewUserHandler(authService),
		Rooms:       httpHandler.NewRoomHandler(roomService, messageService),
		Messages:    httpHandler.NewMessageHandler(messageService, statusEngine),
		WebSocket:   wsHandler.NewWebSocketHandler(h, roomService, dispatcher, "*", 64),
		Verifier:    authService,
		Revocations: revocations,
		CORSOrigin:  "http://localhost:3000",
	}
	if rateLimit > 0 {
		routes.Limiter = &countingLimiter{hits: map[string]int{}}
		routes.RateLimitMax = rateLimit
		routes.RateLimitWindow = time.Minute
	}

	ts := &testServer{router: NewRouter(log, routes), hub: h, db: db}
	ts.server = httptest.NewServer(ts.router)
	t.Cleanup(func() {
		ts.server.Close()
		h.Stop()
		_ = sqlDB.Close()
	})
	return ts
}

// do performs a request against the router and decodes the JSON answer into out.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type account struct {
	ID      string
	Token   string
	Refresh string
}

// signup registers and logs in a user.
func (ts *testServer) signup(t *testing.T, username string) account {
	t.Helper()
	var user struct {
		ID string `json:"id"`
	}
	code := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "password": "secret123", "email": username + "@example.com",
	}, &user)
	require.Equal(t, http.StatusCreated, code)

	var login httpHandler.LoginResponse
	code = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "secret123"}, &login)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Bearer", login.TokenType)
	require.NotEmpty(t, login.RefreshToken)
	return account{ID: user.ID, Token: login.AccessToken, Refresh: login.RefreshToken}
}

func (ts *testServer) createRoom(t *testing.T, owner account, members ...string) string {
	t.Helper()
	var room struct {
		ID string `json:"id"`
	}
	code := ts.do(t, http.MethodPost, "/api/rooms", owner.Token, gin.H{"name": "general", "members": members}, &room)
	require.Equal(t, http.StatusCreated, code)
	return room.ID
}
