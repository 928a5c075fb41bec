package repository

import (
	"context"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// MessageRepository stores room messages.
type MessageRepository interface {
	// FindByID returns ErrMessageNotFound if the message does not exist.
	FindByID(ctx context.Context, id string) (*domain.Message, error)

	Create(ctx context.Context, msg *domain.Message) error

	// UpdateContent rewrites the content of an existing message.
	UpdateContent(ctx context.Context, id, content string) (*domain.Message, error)

	// ListByRoom returns the room's messages newest first, statuses loaded.
	ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]domain.Message, error)

	// PendingIDs returns ids of messages in roomID not sent by userID for which
	// userID has no status row with the given receipt set.
	PendingIDs(ctx context.Context, roomID, userID string, kind domain.StatusKind) ([]string, error)
}
