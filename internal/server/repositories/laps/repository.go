// Package laps provides persistence for laps inside a work session.
package laps

import (
	"context"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

type Repository interface {
	// Create inserts l numbered one past the session's current lap count
	// and returns the stored row.
	Create(ctx context.Context, l *models.Lap) (*models.Lap, error)
	ListBySession(ctx context.Context, sessionID, userID int64) ([]*models.Lap, error)
	Get(ctx context.Context, id, sessionID, userID int64) (*models.Lap, error)
	Update(ctx context.Context, id, sessionID, userID int64, p models.LapPatch) (*models.Lap, error)
	Delete(ctx context.Context, id, sessionID, userID int64) error
}
