package laps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

const columns = `id, lap_uuid, user_id, session_id, lap_number, lap_name, start_time, end_time,
		duration, is_active, current_hours, current_minutes, current_seconds,
		work_done_string, is_break_lap, hourly_amount, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Lap, error) {
	l := &models.Lap{}
	err := row.Scan(&l.ID, &l.LapUUID, &l.UserID, &l.SessionID, &l.LapNumber, &l.LapName,
		&l.StartTime, &l.EndTime, &l.Duration, &l.IsActive, &l.CurrentHours, &l.CurrentMinutes,
		&l.CurrentSeconds, &l.WorkDoneString, &l.IsBreakLap, &l.HourlyAmount, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Lap) (*models.Lap, error) {
	query := `
		INSERT INTO laps (lap_uuid, user_id, session_id, lap_number, lap_name, start_time, is_active)
		SELECT $1, $2, $3, COUNT(*) + 1, $4, $5, $6
		FROM laps WHERE session_id = $3
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query,
		l.LapUUID, l.UserID, l.SessionID, l.LapName, l.StartTime, l.IsActive))
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID, userID int64) ([]*models.Lap, error) {
	query := `SELECT ` + columns + ` FROM laps
		WHERE session_id = $1 AND user_id = $2
		ORDER BY lap_number, id`

	rows, err := r.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Lap, 0)
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id, sessionID, userID int64) (*models.Lap, error) {
	query := `SELECT ` + columns + ` FROM laps
		WHERE id = $1 AND session_id = $2 AND user_id = $3`

	return scan(r.db.QueryRowContext(ctx, query, id, sessionID, userID))
}

// Update applies p. Setting EndTime also marks the lap inactive.
func (r *PostgresRepository) Update(ctx context.Context, id, sessionID, userID int64, p models.LapPatch) (*models.Lap, error) {
	query := `
		UPDATE laps SET
			lap_name   = COALESCE($4, lap_name),
			end_time   = COALESCE($5::timestamptz, end_time),
			is_active  = CASE WHEN $5::timestamptz IS NULL THEN is_active ELSE FALSE END,
			duration   = COALESCE($6, duration),
			updated_at = now()
		WHERE id = $1 AND session_id = $2 AND user_id = $3
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query, id, sessionID, userID, p.LapName, p.EndTime, p.Duration))
}

func (r *PostgresRepository) Delete(ctx context.Context, id, sessionID, userID int64) error {
	query := `DELETE FROM laps WHERE id = $1 AND session_id = $2 AND user_id = $3`

	res, err := r.db.ExecContext(ctx, query, id, sessionID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
