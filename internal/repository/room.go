package repository

import (
	"context"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// RoomRepository stores rooms and their member sets.
type RoomRepository interface {
	// FindByID loads a room with its members, ErrRoomNotFound if absent.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// FindForMember loads the room only if userID is one of its members.
	// An absent room and a non-member are indistinguishable: both ErrRoomNotFound.
	FindForMember(ctx context.Context, roomID, userID string) (*domain.Room, error)

	// ListForMember returns every room userID belongs to, members loaded.
	ListForMember(ctx context.Context, userID string) ([]domain.Room, error)

	// ListIDsForMember returns only the ids of the rooms userID belongs to.
	ListIDsForMember(ctx context.Context, userID string) ([]string, error)

	// Create inserts the room and one member row per id in memberIDs.
	Create(ctx context.Context, room *domain.Room, memberIDs []string) error

	// AddMember returns ErrDuplicateEntry when the user is already a member.
	AddMember(ctx context.Context, roomID, userID string) error

	// RemoveMember returns ErrNotFound when the user was not a member.
	RemoveMember(ctx context.Context, roomID, userID string) error

	CountMembers(ctx context.Context, roomID string) (int64, error)

	// Delete removes the room together with its members, messages and statuses.
	Delete(ctx context.Context, roomID string) error
}
