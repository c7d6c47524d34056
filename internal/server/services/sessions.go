package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/objectstore"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
	"github.com/justlikeclockwork/clockwork/internal/timex"
)

const (
	DefaultSessionLimit = 50
	MaxSessionLimit     = 100
)

// SessionDetail is a session with its laps and their images.
type SessionDetail struct {
	Session *models.Session
	Laps    []LapDetail
}

type LapDetail struct {
	Lap    *models.Lap
	Images []ImageView
}

// SessionInput holds the client fields of a new session. StartedAt is a raw
// client timestamp; empty means now.
type SessionInput struct {
	Name        *string
	Description *string
	StartedAt   string
}

// SessionUpdate is a partial update; nil fields are left unchanged and a
// non-nil EndedAt ends the session.
type SessionUpdate struct {
	Name          *string
	Description   *string
	EndedAt       *string
	TotalDuration *int64
	IsCompleted   *bool
}

type LapInput struct {
	Name      *string
	StartedAt string
}

type LapUpdate struct {
	Name     *string
	EndedAt  *string
	Duration *int64
}

// ListQuery is the client-facing session filter. A zero Limit means the
// default page size.
type ListQuery struct {
	Limit       int
	Offset      int
	StartDate   *time.Time
	EndDate     *time.Time
	IsCompleted *bool
}

// SessionService manages work sessions and their laps for a single owner.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	presignTTL  time.Duration
	now         func() time.Time
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, presignTTL time.Duration, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		store:       store,
		presignTTL:  presignTTL,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With("module", "sessions"),
	}
}

// parseTime reads a client timestamp, falling back to now with a warning.
func parseTime(ctx context.Context, log logging.Logger, raw string, now time.Time) time.Time {
	t, ok := timex.ParseOrNow(raw, now)
	if !ok {
		log.Warn(ctx, "unparseable timestamp, using current time", "value", raw)
	}
	return t
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return storageErr(op, err)
}

func (s *SessionService) Create(ctx context.Context, userID int64, in SessionInput) (*SessionDetail, error) {
	start := s.now()
	if in.StartedAt != "" {
		start = parseTime(ctx, s.log, in.StartedAt, start)
	}

	created, err := s.repomanager.Sessions(s.db).Create(ctx, &models.Session{
		SessionUUID: uuid.New(),
		UserID:      userID,
		SessionName: in.Name,
		Description: in.Description,
		StartTime:   &start,
		IsActive:    true,
	})
	if err != nil {
		return nil, storageErr("create session", err)
	}
	return &SessionDetail{Session: created, Laps: []LapDetail{}}, nil
}

// List returns the user's sessions newest first, without laps.
func (s *SessionService) List(ctx context.Context, userID int64, q ListQuery) ([]*models.Session, error) {
	if q.Limit == 0 {
		q.Limit = DefaultSessionLimit
	}
	if q.Limit < 1 || q.Limit > MaxSessionLimit {
		return nil, common.ErrorValidation
	}
	if q.Offset < 0 {
		return nil, common.ErrorValidation
	}

	list, err := s.repomanager.Sessions(s.db).List(ctx, userID, models.SessionFilter{
		Limit:         q.Limit,
		Offset:        q.Offset,
		CreatedAfter:  q.StartDate,
		CreatedBefore: q.EndDate,
		IsCompleted:   q.IsCompleted,
	})
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	return list, nil
}

func (s *SessionService) Latest(ctx context.Context, userID int64) (*SessionDetail, error) {
	sess, err := s.repomanager.Sessions(s.db).Latest(ctx, userID)
	if err != nil {
		return nil, notFoundOr("latest session", err)
	}
	return s.detail(ctx, sess)
}

func (s *SessionService) Get(ctx context.Context, userID, sessionID int64) (*SessionDetail, error) {
	sess, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundOr("get session", err)
	}
	return s.detail(ctx, sess)
}

func (s *SessionService) Update(ctx context.Context, userID, sessionID int64, in SessionUpdate) (*SessionDetail, error) {
	patch := models.SessionPatch{
		SessionName:   in.Name,
		Description:   in.Description,
		TotalDuration: in.TotalDuration,
		IsCompleted:   in.IsCompleted,
	}
	if in.EndedAt != nil {
		end := parseTime(ctx, s.log, *in.EndedAt, s.now())
		patch.EndTime = &end
	}

	sess, err := s.repomanager.Sessions(s.db).Update(ctx, sessionID, userID, patch)
	if err != nil {
		return nil, notFoundOr("update session", err)
	}
	return s.detail(ctx, sess)
}

// Delete removes the session's objects, then the row. Laps and image rows
// go with it through the foreign keys.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID int64) error {
	repo := s.repomanager.Sessions(s.db)
	if _, err := repo.Get(ctx, sessionID, userID); err != nil {
		return notFoundOr("get session", err)
	}

	if n, err := s.store.DeletePrefix(ctx, objectstore.SessionPrefix(userID, sessionID)); err != nil {
		s.log.Error(ctx, "delete session objects failed", "session_id", sessionID, "error", err)
	} else {
		s.log.Debug(ctx, "session objects deleted", "session_id", sessionID, "count", n)
	}

	if err := repo.Delete(ctx, sessionID, userID); err != nil {
		return notFoundOr("delete session", err)
	}
	return nil
}

func (s *SessionService) CreateLap(ctx context.Context, userID, sessionID int64, in LapInput) (*LapDetail, error) {
	if _, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID, userID); err != nil {
		return nil, notFoundOr("get session", err)
	}

	start := s.now()
	if in.StartedAt != "" {
		start = parseTime(ctx, s.log, in.StartedAt, start)
	}

	lap, err := s.repomanager.Laps(s.db).Create(ctx, &models.Lap{
		LapUUID:   uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		LapName:   in.Name,
		StartTime: &start,
		IsActive:  true,
	})
	if err != nil {
		return nil, storageErr("create lap", err)
	}
	return &LapDetail{Lap: lap, Images: []ImageView{}}, nil
}

func (s *SessionService) UpdateLap(ctx context.Context, userID, sessionID, lapID int64, in LapUpdate) (*LapDetail, error) {
	patch := models.LapPatch{LapName: in.Name, Duration: in.Duration}
	if in.EndedAt != nil {
		end := parseTime(ctx, s.log, *in.EndedAt, s.now())
		patch.EndTime = &end
	}

	lap, err := s.repomanager.Laps(s.db).Update(ctx, lapID, sessionID, userID, patch)
	if err != nil {
		return nil, notFoundOr("update lap", err)
	}

	imgs, err := s.repomanager.Images(s.db).ListByLap(ctx, lapID, sessionID, userID)
	if err != nil {
		return nil, storageErr("list lap images", err)
	}
	return &LapDetail{Lap: lap, Images: presignAll(ctx, s.store, s.log, imgs, s.presignTTL)}, nil
}

func (s *SessionService) DeleteLap(ctx context.Context, userID, sessionID, lapID int64) error {
	repo := s.repomanager.Laps(s.db)
	if _, err := repo.Get(ctx, lapID, sessionID, userID); err != nil {
		return notFoundOr("get lap", err)
	}

	if _, err := s.store.DeletePrefix(ctx, objectstore.LapPrefix(userID, sessionID, lapID)); err != nil {
		s.log.Error(ctx, "delete lap objects failed", "lap_id", lapID, "error", err)
	}

	if err := repo.Delete(ctx, lapID, sessionID, userID); err != nil {
		return notFoundOr("delete lap", err)
	}
	return nil
}

func (s *SessionService) detail(ctx context.Context, sess *models.Session) (*SessionDetail, error) {
	laps, err := s.repomanager.Laps(s.db).ListBySession(ctx, sess.ID, sess.UserID)
	if err != nil {
		return nil, storageErr("list laps", err)
	}
	imgs, err := s.repomanager.Images(s.db).ListBySession(ctx, sess.ID, sess.UserID)
	if err != nil {
		return nil, storageErr("list session images", err)
	}

	byLap := make(map[int64][]*models.Image)
	for _, img := range imgs {
		byLap[img.LapID] = append(byLap[img.LapID], img)
	}

	d := &SessionDetail{Session: sess, Laps: make([]LapDetail, 0, len(laps))}
	for _, lap := range laps {
		d.Laps = append(d.Laps, LapDetail{
			Lap:    lap,
			Images: presignAll(ctx, s.store, s.log, byLap[lap.ID], s.presignTTL),
		})
	}
	return d, nil
}

// presignAll builds views for imgs, skipping those whose URL cannot be
// presigned.
func presignAll(ctx context.Context, store ObjectStore, log logging.Logger, imgs []*models.Image, ttl time.Duration) []ImageView {
	out := make([]ImageView, 0, len(imgs))
	for _, img := range imgs {
		url, err := store.PresignGet(ctx, img.ObjectKey, ttl)
		if err != nil {
			log.Warn(ctx, "presign failed, image omitted", "image_id", img.ImageUUID, "error", err)
			continue
		}
		out = append(out, newImageView(img, url))
	}
	return out
}

func newImageView(img *models.Image, url string) ImageView {
	return ImageView{
		ImageID:   img.ImageUUID.String(),
		ImageName: img.ImageName,
		LapID:     img.LapID,
		URL:       url,
		MimeType:  img.MimeType,
		FileSize:  img.FileSize,
		CreatedAt: img.CreatedAt,
	}
}
