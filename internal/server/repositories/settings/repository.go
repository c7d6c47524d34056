// Package settings provides persistence for per-user preferences.
package settings

import (
	"context"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has no settings row.
	Get(ctx context.Context, userID int64) (*models.Settings, error)
	// CreateDefault inserts the default row unless one exists, and returns
	// the stored row either way.
	CreateDefault(ctx context.Context, userID int64) (*models.Settings, error)
	// Update writes every field of s, creating the row when missing.
	Update(ctx context.Context, s *models.Settings) (*models.Settings, error)
}
