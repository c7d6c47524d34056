package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
)

const columns = `id, image_uuid, user_id, session_id, lap_id,
		COALESCE(image_name, ''), COALESCE(mime_type, ''), COALESCE(file_size, 0),
		COALESCE(file_format, ''), minio_object_key, COALESCE(minio_bucket, ''), created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Image, error) {
	img := &models.Image{}
	err := row.Scan(&img.ID, &img.ImageUUID, &img.UserID, &img.SessionID, &img.LapID,
		&img.ImageName, &img.MimeType, &img.FileSize, &img.FileFormat, &img.ObjectKey,
		&img.Bucket, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	query := `
		INSERT INTO images (image_uuid, user_id, session_id, lap_id, image_name, mime_type,
			file_size, file_format, minio_object_key, minio_bucket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query,
		img.ImageUUID, img.UserID, img.SessionID, img.LapID, img.ImageName, img.MimeType,
		img.FileSize, img.FileFormat, img.ObjectKey, img.Bucket))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Image, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Image, 0)
	for rows.Next() {
		img, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByLap(ctx context.Context, lapID, sessionID, userID int64) ([]*models.Image, error) {
	query := `SELECT ` + columns + ` FROM images
		WHERE lap_id = $1 AND session_id = $2 AND user_id = $3
		ORDER BY created_at, id`

	return r.list(ctx, query, lapID, sessionID, userID)
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID, userID int64) ([]*models.Image, error) {
	query := `SELECT ` + columns + ` FROM images
		WHERE session_id = $1 AND user_id = $2
		ORDER BY created_at, id`

	return r.list(ctx, query, sessionID, userID)
}

func (r *PostgresRepository) GetByUUID(ctx context.Context, id uuid.UUID, userID int64) (*models.Image, error) {
	query := `SELECT ` + columns + ` FROM images
		WHERE image_uuid = $1 AND user_id = $2`

	return scan(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM images WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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
