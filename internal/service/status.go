package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

const (
	// maxMarkAttempts bounds the re-runs after losing a concurrent first insert.
	maxMarkAttempts = 3
	// batchRoomConcurrency bounds the rooms processed at once by MarkAllRoomsDelivered.
	batchRoomConcurrency = 4
)

// StatusEngine owns the delivery/read receipt state machine. Every mutation runs
// in one transaction; the resulting event is broadcast after commit and before
// the call returns.
type StatusEngine struct {
	tx          repository.Transactor
	rooms       repository.RoomRepository
	broadcaster Broadcaster

	locks *keyedMutex
	now   func() time.Time
}

func NewStatusEngine(tx repository.Transactor, rooms repository.RoomRepository, broadcaster Broadcaster) *StatusEngine {
	if tx == nil || rooms == nil || broadcaster == nil {
		panic("Transactor, RoomRepository and Broadcaster cannot be nil for StatusEngine")
	}
	return &StatusEngine{
		tx:          tx,
		rooms:       rooms,
		broadcaster: broadcaster,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MarkDelivered records that userID's client received messageID.
// The returned status is nil when userID is the sender and nothing exists.
func (e *StatusEngine) MarkDelivered(ctx context.Context, roomID, messageID, userID string) (*domain.DeliveryStatus, error) {
	return e.mark(ctx, roomID, messageID, userID, domain.StatusDelivered)
}

// MarkRead records that userID opened messageID. A read is also a delivery.
func (e *StatusEngine) MarkRead(ctx context.Context, roomID, messageID, userID string) (*domain.DeliveryStatus, error) {
	return e.mark(ctx, roomID, messageID, userID, domain.StatusRead)
}

func (e *StatusEngine) mark(ctx context.Context, roomID, messageID, userID string, kind domain.StatusKind) (*domain.DeliveryStatus, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"message_id": messageID,
		"user_id":    userID,
		"kind":       kind,
	})

	// Held across commit and broadcast so events for one key leave in commit order.
	unlock := e.locks.Lock(userID + "/" + messageID)
	defer unlock()

	var (
		status *domain.DeliveryStatus
		event  string
		err    error
	)
	for attempt := 1; attempt <= maxMarkAttempts; attempt++ {
		status, event, err = e.markOnce(ctx, roomID, messageID, userID, kind)
		if !errors.Is(err, repository.ErrDuplicateEntry) && !errors.Is(err, repository.ErrTxConflict) {
			break
		}
		logCtx.WithField("attempt", attempt).WithError(err).Debug("Status row changed concurrently, retrying")
	}
	if err != nil {
		return nil, asServiceError(err, logCtx, "Status engine storage failure")
	}

	if event != "" {
		e.broadcaster.Broadcast(roomID, event, status)
		logCtx.WithField("event", event).Debug("Status change broadcast")
	}
	return status, nil
}

// markOnce runs one transaction and returns the resulting row and the event to
// emit, or "" when nothing changed.
func (e *StatusEngine) markOnce(ctx context.Context, roomID, messageID, userID string, kind domain.StatusKind) (*domain.DeliveryStatus, string, error) {
	var (
		result *domain.DeliveryStatus
		event  string
	)
	err := e.tx.WithinTx(ctx, func(store repository.Store) error {
		if _, err := findMemberRoom(ctx, store.Rooms(), roomID, userID); err != nil {
			return err
		}

		msg, err := store.Messages().FindByID(ctx, messageID)
		if err != nil {
			if errors.Is(err, repository.ErrMessageNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if msg.RoomID != roomID {
			return ErrMessageNotFound
		}

		existing, err := store.Statuses().FindByKey(ctx, userID, messageID)
		if err != nil && !errors.Is(err, repository.ErrStatusNotFound) {
			return err
		}
		if msg.SenderID == userID {
			result = existing
			return nil
		}

		now := e.now()
		switch {
		case existing == nil:
			created := &domain.DeliveryStatus{
				ID:          uuid.NewString(),
				MessageID:   messageID,
				UserID:      userID,
				DeliveredAt: &now,
			}
			event = domain.EventMessageDelivered
			if kind == domain.StatusRead {
				created.ReadAt = &now
				event = domain.EventMessageRead
			}
			if err := store.Statuses().Create(ctx, created); err != nil {
				return err
			}
			result = created

		case kind == domain.StatusDelivered && existing.DeliveredAt == nil && existing.ReadAt == nil:
			existing.DeliveredAt = &now
			if err := store.Statuses().Save(ctx, existing); err != nil {
				return err
			}
			result, event = existing, domain.EventMessageDelivered

		case kind == domain.StatusRead && existing.ReadAt == nil:
			existing.ReadAt = &now
			if existing.DeliveredAt == nil {
				existing.DeliveredAt = &now
			}
			if err := store.Statuses().Save(ctx, existing); err != nil {
				return err
			}
			result, event = existing, domain.EventMessageRead

		default:
			result = existing
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return result, event, nil
}

// MarkRoomRead marks every message of roomID not sent by userID as read.
func (e *StatusEngine) MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})
	n, err := e.markRoomBatch(ctx, roomID, userID, domain.StatusRead)
	if err != nil {
		return 0, asServiceError(err, logCtx, "Status engine storage failure")
	}
	return n, nil
}

// MarkAllRoomsDelivered marks every pending message in every room of userID as
// delivered. Each room commits on its own: when one room fails, the rooms that
// already committed stay committed and the partial count is returned with the error.
func (e *StatusEngine) MarkAllRoomsDelivered(ctx context.Context, userID string) (int64, error) {
	logCtx := logrus.WithField("user_id", userID)

	roomIDs, err := e.rooms.ListIDsForMember(ctx, userID)
	if err != nil {
		return 0, asServiceError(err, logCtx, "Status engine storage failure")
	}

	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchRoomConcurrency)
	for _, roomID := range roomIDs {
		roomID := roomID
		g.Go(func() error {
			n, err := e.markRoomBatch(gctx, roomID, userID, domain.StatusDelivered)
			if errors.Is(err, ErrRoomNotFound) {
				// Left the room after it was listed.
				return nil
			}
			if err != nil {
				return fmt.Errorf("room %s: %w", roomID, err)
			}
			atomic.AddInt64(&total, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return atomic.LoadInt64(&total), asServiceError(err, logCtx, "Status engine storage failure")
	}

	logCtx.WithFields(logrus.Fields{"rooms": len(roomIDs), "count": total}).Debug("Marked all rooms delivered")
	return total, nil
}

func (e *StatusEngine) markRoomBatch(ctx context.Context, roomID, userID string, kind domain.StatusKind) (int64, error) {
	var (
		affected int64
		rows     []domain.DeliveryStatus
	)
	err := e.tx.WithinTx(ctx, func(store repository.Store) error {
		if _, err := findMemberRoom(ctx, store.Rooms(), roomID, userID); err != nil {
			return err
		}

		pending, err := store.Messages().PendingIDs(ctx, roomID, userID, kind)
		if err != nil || len(pending) == 0 {
			return err
		}

		// Millisecond precision survives a DATETIME(3) round trip, so the
		// re-read rows can be matched against it.
		now := e.now().Truncate(time.Millisecond)
		var updated int64
		if kind == domain.StatusRead {
			updated, err = store.Statuses().MarkReadWhereNull(ctx, userID, pending, now)
		} else {
			updated, err = store.Statuses().MarkDeliveredWhereNull(ctx, userID, pending, now)
		}
		if err != nil {
			return err
		}

		// Rows that already exist are skipped, including ones a concurrent
		// single-message call inserted after PendingIDs ran.
		missing := make([]domain.DeliveryStatus, 0, len(pending))
		for _, messageID := range pending {
			s := domain.DeliveryStatus{
				ID:          uuid.NewString(),
				MessageID:   messageID,
				UserID:      userID,
				DeliveredAt: &now,
			}
			if kind == domain.StatusRead {
				s.ReadAt = &now
			}
			missing = append(missing, s)
		}
		inserted, err := store.Statuses().CreateSkipDuplicates(ctx, missing)
		if err != nil {
			return err
		}

		rows, err = store.Statuses().ListByMessages(ctx, userID, pending)
		if err != nil {
			return err
		}
		rows = stampedAt(rows, kind, now)
		affected = updated + inserted
		return nil
	})
	if err != nil {
		return 0, err
	}

	if affected > 0 {
		event := domain.EventMessagesDelivered
		if kind == domain.StatusRead {
			event = domain.EventMessagesRead
		}
		e.broadcaster.Broadcast(roomID, event, rows)
	}
	return affected, nil
}

// stampedAt keeps the rows whose kind timestamp is at, i.e. the ones this batch changed.
func stampedAt(rows []domain.DeliveryStatus, kind domain.StatusKind, at time.Time) []domain.DeliveryStatus {
	out := rows[:0]
	for _, row := range rows {
		stamp := row.DeliveredAt
		if kind == domain.StatusRead {
			stamp = row.ReadAt
		}
		if stamp != nil && stamp.Equal(at) {
			out = append(out, row)
		}
	}
	return out
}
