// Package images provides persistence for image metadata rows.
package images

import (
	"context"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	ListByLap(ctx context.Context, lapID, sessionID, userID int64) ([]*models.Image, error)
	ListBySession(ctx context.Context, sessionID, userID int64) ([]*models.Image, error)
	GetByUUID(ctx context.Context, id uuid.UUID, userID int64) (*models.Image, error)
	Delete(ctx context.Context, id int64) error
}
