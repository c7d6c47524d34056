package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

const columns = `id, session_uuid, user_id, session_name, description, start_time, end_time,
		lap_count, total_seconds, total_duration, total_amount, is_active, is_completed,
		created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(&s.ID, &s.SessionUUID, &s.UserID, &s.SessionName, &s.Description,
		&s.StartTime, &s.EndTime, &s.LapCount, &s.TotalSeconds, &s.TotalDuration,
		&s.TotalAmount, &s.IsActive, &s.IsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (session_uuid, user_id, session_name, description, start_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query,
		s.SessionUUID, s.UserID, s.SessionName, s.Description, s.StartTime, s.IsActive))
}

// List returns the user's sessions newest first.
func (r *PostgresRepository) List(ctx context.Context, userID int64, f models.SessionFilter) ([]*models.Session, error) {
	var sb strings.Builder
	args := []any{userID}

	sb.WriteString(`SELECT ` + columns + ` FROM sessions WHERE user_id = $1`)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CreatedAfter != nil {
		sb.WriteString(" AND created_at >= " + arg(*f.CreatedAfter))
	}
	if f.CreatedBefore != nil {
		sb.WriteString(" AND created_at <= " + arg(*f.CreatedBefore))
	}
	if f.IsCompleted != nil {
		sb.WriteString(" AND is_completed = " + arg(*f.IsCompleted))
	}

	sb.WriteString(" ORDER BY created_at DESC")
	sb.WriteString(" LIMIT " + arg(f.Limit))
	sb.WriteString(" OFFSET " + arg(f.Offset))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID int64) (*models.Session, error) {
	query := `SELECT ` + columns + ` FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return scan(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) Get(ctx context.Context, id, userID int64) (*models.Session, error) {
	query := `SELECT ` + columns + ` FROM sessions
		WHERE id = $1 AND user_id = $2`

	return scan(r.db.QueryRowContext(ctx, query, id, userID))
}

// Update applies p. Setting EndTime also marks the session inactive.
func (r *PostgresRepository) Update(ctx context.Context, id, userID int64, p models.SessionPatch) (*models.Session, error) {
	query := `
		UPDATE sessions SET
			session_name   = COALESCE($3, session_name),
			description    = COALESCE($4, description),
			end_time       = COALESCE($5::timestamptz, end_time),
			is_active      = CASE WHEN $5::timestamptz IS NULL THEN is_active ELSE FALSE END,
			total_duration = COALESCE($6, total_duration),
			is_completed   = COALESCE($7, is_completed),
			updated_at     = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query,
		id, userID, p.SessionName, p.Description, p.EndTime, p.TotalDuration, p.IsCompleted))
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM sessions WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
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
