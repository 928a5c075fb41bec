package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	gormpersistence "github.com/mateoabrbt/whistle-server/internal/infra/persistence/gorm"
	"github.com/mateoabrbt/whistle-server/internal/infra/setup"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

type recordedEvent struct {
	RoomID  string
	Event   string
	Payload interface{}
}

// recorder stands in for the hub: it remembers broadcasts and subscriptions.
type recorder struct {
	mu           sync.Mutex
	events       []recordedEvent
	subscribed   map[string][]string
	unsubscribed map[string][]string
}

func newRecorder() *recorder {
	return &recorder{subscribed: map[string][]string{}, unsubscribed: map[string][]string{}}
}

func (r *recorder) Broadcast(roomID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (r *recorder) SubscribeUser(userID string, roomIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed[userID] = append(r.subscribed[userID], roomIDs...)
}

func (r *recorder) UnsubscribeUser(userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribed[userID] = append(r.unsubscribed[userID], roomID)
}

func (r *recorder) Events() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorder) Named(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fixture is a fully wired service layer over a private in-memory SQLite DB.
type fixture struct {
	db       *gorm.DB
	rec      *recorder
	users    *gormpersistence.GormUserRepository
	rooms    *gormpersistence.GormRoomRepository
	messages *gormpersistence.GormMessageRepository
	engine   *service.StatusEngine
	roomSvc  *service.RoomService
	msgSvc   *service.MessageService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection serialises transactions the way row locks do on MySQL.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, setup.MigrateDB(db))

	f := &fixture{
		db:       db,
		rec:      newRecorder(),
		users:    gormpersistence.NewGormUserRepository(db),
		rooms:    gormpersistence.NewGormRoomRepository(db),
		messages: gormpersistence.NewGormMessageRepository(db),
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	tx := gormpersistence.NewGormTransactor(db)
	f.engine = service.NewStatusEngine(tx, f.rooms, f.rec)
	service.SetEngineClock(f.engine, func() time.Time { return f.now })
	f.roomSvc = service.NewRoomService(tx, f.rooms, f.users, f.rec, f.rec)
	f.msgSvc = service.NewMessageService(f.rooms, f.messages, f.rec)
	return f
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Username: name, Password: "x", Email: name + "@example.com"}
	require.NoError(t, f.users.Save(context.Background(), u))
	return u.ID
}

func (f *fixture) room(t *testing.T, memberIDs ...string) string {
	t.Helper()
	r := &domain.Room{ID: uuid.NewString(), Name: "room-" + uuid.NewString()[:8]}
	require.NoError(t, f.rooms.Create(context.Background(), r, memberIDs))
	return r.ID
}

func (f *fixture) message(t *testing.T, roomID, senderID string) string {
	t.Helper()
	m := &domain.Message{ID: uuid.NewString(), RoomID: roomID, SenderID: senderID, Content: "hello"}
	require.NoError(t, f.messages.Create(context.Background(), m))
	return m.ID
}

func (f *fixture) statusRows(t *testing.T, userID, messageID string) []domain.DeliveryStatus {
	t.Helper()
	var rows []domain.DeliveryStatus
	require.NoError(t, f.db.Where("user_id = ? AND message_id = ?", userID, messageID).Find(&rows).Error)
	return rows
}

func (f *fixture) countStatuses(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.DeliveryStatus{}).Count(&n).Error)
	return n
}
