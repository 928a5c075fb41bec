package repository

import (
	"context"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// UserRepository stores accounts.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns ErrUserNotFound when no such user exists.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByIDs returns the users that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// Save inserts or updates the user. ErrDuplicateEntry on a taken username.
	Save(ctx context.Context, user *domain.User) error

	// SetRefreshTokenHash stores hash as the user's current refresh token; ""
	// signs every refresh token of the user out.
	SetRefreshTokenHash(ctx context.Context, userID, hash string) error

	// SwapRefreshTokenHash replaces oldHash with newHash only while oldHash is
	// still current, and reports whether it did.
	SwapRefreshTokenHash(ctx context.Context, userID, oldHash, newHash string) (bool, error)
}
