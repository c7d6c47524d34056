// Package sessions provides persistence for work sessions.
package sessions

import (
	"context"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

// Repository scopes every read and write to the owning user. Rows of other
// users behave as absent (common.ErrorNotFound).
type Repository interface {
	Create(ctx context.Context, s *models.Session) (*models.Session, error)
	List(ctx context.Context, userID int64, f models.SessionFilter) ([]*models.Session, error)
	Latest(ctx context.Context, userID int64) (*models.Session, error)
	Get(ctx context.Context, id, userID int64) (*models.Session, error)
	Update(ctx context.Context, id, userID int64, p models.SessionPatch) (*models.Session, error)
	Delete(ctx context.Context, id, userID int64) error
}
