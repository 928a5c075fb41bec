package repository

import (
	"context"
	"time"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// StatusRepository stores delivery/read receipts. Every method must be called
// with a transaction-bound repository when used by the status engine.
type StatusRepository interface {
	// FindByKey loads and row-locks the status of (userID, messageID).
	// Returns ErrStatusNotFound when no row exists.
	FindByKey(ctx context.Context, userID, messageID string) (*domain.DeliveryStatus, error)

	// Create inserts a new row; ErrDuplicateEntry if (user, message) exists.
	Create(ctx context.Context, status *domain.DeliveryStatus) error

	Save(ctx context.Context, status *domain.DeliveryStatus) error

	// MarkDeliveredWhereNull sets delivered_at on the user's existing rows for
	// messageIDs where it is still null. Returns the number of rows changed.
	MarkDeliveredWhereNull(ctx context.Context, userID string, messageIDs []string, at time.Time) (int64, error)

	// MarkReadWhereNull sets read_at where null and backfills delivered_at.
	MarkReadWhereNull(ctx context.Context, userID string, messageIDs []string, at time.Time) (int64, error)

	// CreateSkipDuplicates inserts rows, silently skipping existing (user, message)
	// pairs. Returns the number actually inserted.
	CreateSkipDuplicates(ctx context.Context, statuses []domain.DeliveryStatus) (int64, error)

	// ListByMessages returns the user's rows for the given messages.
	ListByMessages(ctx context.Context, userID string, messageIDs []string) ([]domain.DeliveryStatus, error)
}
