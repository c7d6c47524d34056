package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/objectstore"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
)

// MaxImageSize is the largest accepted upload in bytes.
const MaxImageSize = 10 << 20

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "bmp": true,
}

// AllowedExtensions lists accepted image extensions in sorted order.
func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ValidationError is a user-facing input problem. It matches
// common.ErrorValidation.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == common.ErrorValidation }

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	presignTTL  time.Duration
	log         logging.Logger
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, presignTTL time.Duration, log logging.Logger) *ImageService {
	return &ImageService{
		db:          db,
		repomanager: m,
		store:       store,
		presignTTL:  presignTTL,
		log:         log.With("module", "images"),
	}
}

// Upload stores data for a lap the user owns and records it. If the row
// cannot be written the uploaded object is removed again.
func (s *ImageService) Upload(ctx context.Context, userID, sessionID, lapID int64, filename, contentType string, data []byte) (*ImageView, error) {
	if _, err := s.repomanager.Laps(s.db).Get(ctx, lapID, sessionID, userID); err != nil {
		return nil, notFoundOr("get lap", err)
	}

	if filename == "" {
		return nil, &ValidationError{Msg: "No filename provided"}
	}
	ext := extension(filename)
	if !allowedExtensions[ext] {
		return nil, &ValidationError{Msg: "File type not allowed. Allowed types: " + strings.Join(AllowedExtensions(), ", ")}
	}
	if len(data) > MaxImageSize {
		return nil, &ValidationError{Msg: fmt.Sprintf("File too large. Max size: %.1fMB", float64(MaxImageSize)/(1<<20))}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New()
	key := objectstore.ImageKey(userID, sessionID, lapID, id, ext)
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}

	img, err := s.repomanager.Images(s.db).Create(ctx, &models.Image{
		ImageUUID:  id,
		UserID:     userID,
		SessionID:  sessionID,
		LapID:      lapID,
		ImageName:  filename,
		MimeType:   contentType,
		FileSize:   int64(len(data)),
		FileFormat: ext,
		ObjectKey:  key,
		Bucket:     s.store.Bucket(),
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error(ctx, "orphaned image object", "key", key, "error", delErr)
		}
		return nil, storageErr("create image", err)
	}

	url, err := s.store.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		s.log.Warn(ctx, "presign failed after upload", "image_id", id, "error", err)
	}
	s.log.Info(ctx, "image uploaded", "image_id", id, "lap_id", lapID, "size", len(data))

	v := newImageView(img, url)
	return &v, nil
}

func (s *ImageService) ListForLap(ctx context.Context, userID, sessionID, lapID int64) ([]ImageView, error) {
	if _, err := s.repomanager.Laps(s.db).Get(ctx, lapID, sessionID, userID); err != nil {
		return nil, notFoundOr("get lap", err)
	}
	imgs, err := s.repomanager.Images(s.db).ListByLap(ctx, lapID, sessionID, userID)
	if err != nil {
		return nil, storageErr("list lap images", err)
	}
	return presignAll(ctx, s.store, s.log, imgs, s.presignTTL), nil
}

func (s *ImageService) ListForSession(ctx context.Context, userID, sessionID int64) ([]ImageView, error) {
	if _, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID, userID); err != nil {
		return nil, notFoundOr("get session", err)
	}
	imgs, err := s.repomanager.Images(s.db).ListBySession(ctx, sessionID, userID)
	if err != nil {
		return nil, storageErr("list session images", err)
	}
	return presignAll(ctx, s.store, s.log, imgs, s.presignTTL), nil
}

// Delete removes the image row. A failed object delete is logged and the
// row is removed anyway.
func (s *ImageService) Delete(ctx context.Context, userID int64, imageID uuid.UUID) error {
	repo := s.repomanager.Images(s.db)

	img, err := repo.GetByUUID(ctx, imageID, userID)
	if err != nil {
		return notFoundOr("get image", err)
	}

	if err := s.store.Delete(ctx, img.ObjectKey); err != nil {
		s.log.Error(ctx, "delete image object failed", "image_id", imageID, "error", err)
	}

	if err := repo.Delete(ctx, img.ID); err != nil {
		return notFoundOr("delete image", err)
	}
	return nil
}
