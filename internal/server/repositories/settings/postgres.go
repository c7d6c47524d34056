package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

const columns = `id, user_id, show_amount, show_stats_before_laps, breaks_impact_amount,
		breaks_impact_time, minimalist_mode, notification_enabled,
		notification_interval_hours, hourly_amount, created_at, updated_at`

const insertColumns = `(user_id, show_amount, show_stats_before_laps, breaks_impact_amount,
			breaks_impact_time, minimalist_mode, notification_enabled,
			notification_interval_hours, hourly_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scan(row *sql.Row) (*models.Settings, error) {
	s := &models.Settings{}
	err := row.Scan(&s.ID, &s.UserID, &s.ShowAmount, &s.ShowStatsBeforeLaps, &s.BreaksImpactAmount,
		&s.BreaksImpactTime, &s.MinimalistMode, &s.NotificationEnabled,
		&s.NotificationIntervalHours, &s.HourlyAmount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func values(s *models.Settings) []any {
	return []any{s.UserID, s.ShowAmount, s.ShowStatsBeforeLaps, s.BreaksImpactAmount,
		s.BreaksImpactTime, s.MinimalistMode, s.NotificationEnabled,
		s.NotificationIntervalHours, s.HourlyAmount}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.Settings, error) {
	query := `SELECT ` + columns + ` FROM user_settings WHERE user_id = $1`

	return scan(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) CreateDefault(ctx context.Context, userID int64) (*models.Settings, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO user_settings ` + insertColumns + `
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + columns

	d := models.DefaultSettings(userID)
	return scan(r.db.QueryRowContext(ctx, query, values(&d)...))
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	query := `
		INSERT INTO user_settings ` + insertColumns + `
		ON CONFLICT (user_id) DO UPDATE SET
			show_amount                 = EXCLUDED.show_amount,
			show_stats_before_laps      = EXCLUDED.show_stats_before_laps,
			breaks_impact_amount        = EXCLUDED.breaks_impact_amount,
			breaks_impact_time          = EXCLUDED.breaks_impact_time,
			minimalist_mode             = EXCLUDED.minimalist_mode,
			notification_enabled        = EXCLUDED.notification_enabled,
			notification_interval_hours = EXCLUDED.notification_interval_hours,
			hourly_amount               = EXCLUDED.hourly_amount,
			updated_at                  = now()
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query, values(s)...))
}
