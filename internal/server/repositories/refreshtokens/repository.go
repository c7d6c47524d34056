// Package refreshtokens declares the store of issued refresh tokens. It is
// the only component that writes refresh_tokens rows.
package refreshtokens

import (
	"context"
	"time"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

type Repository interface {
	// Create stores token for userID. An existing identical token value
	// yields common.ErrDuplicateToken.
	Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error

	// FindValid returns the row matching both token and userID whose expiry
	// is strictly after now, or common.ErrorNotFound.
	FindValid(ctx context.Context, token string, userID int64, now time.Time) (*models.RefreshToken, error)

	// Delete removes token and reports whether it existed.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteAllForUser removes every token of userID.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes tokens of userID expiring at or before now.
	DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error)
}
