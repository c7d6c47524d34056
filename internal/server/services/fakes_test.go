package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/images"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/laps"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/refreshtokens"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/sessions"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/settings"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/users"
)

// --- in-memory repositories ---

type memUsers struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	getErr    error
	updateErr error
}

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	c := *u
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, x := range r.byID {
		if x.UserName == login {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	x, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	x, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	x.PasswordHash = hash
	return nil
}

type memRefresh struct {
	mu        sync.Mutex
	rows      map[string]models.RefreshToken
	sweepErr  error
	findErr   error
	createErr error
}

func (r *memRefresh) Create(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.rows[token]; ok {
		return common.ErrDuplicateToken
	}
	r.rows[token] = models.RefreshToken{Token: token, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (r *memRefresh) FindValid(_ context.Context, token string, userID int64, now time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[token]
	if !ok || row.UserID != userID || !row.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	return &row, nil
}

func (r *memRefresh) Delete(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[token]
	delete(r.rows, token)
	return ok, nil
}

func (r *memRefresh) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, row := range r.rows {
		if row.UserID == userID {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

func (r *memRefresh) DeleteExpired(_ context.Context, userID int64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweepErr != nil {
		return 0, r.sweepErr
	}
	var n int64
	for k, row := range r.rows {
		if row.UserID == userID && !row.ExpiresAt.After(now) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

func (r *memRefresh) tokensOf(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k, row := range r.rows {
		if row.UserID == userID {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type memSessions struct {
	mu     sync.Mutex
	rows   map[int64]*models.Session
	nextID int64
	clock  time.Time
}

func (r *memSessions) Create(_ context.Context, s *models.Session) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	c := *s
	c.ID = r.nextID
	c.CreatedAt = r.clock
	r.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memSessions) List(_ context.Context, userID int64, f models.SessionFilter) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Session
	for _, s := range r.rows {
		if s.UserID != userID {
			continue
		}
		if f.IsCompleted != nil && s.IsCompleted != *f.IsCompleted {
			continue
		}
		if f.CreatedAfter != nil && s.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && s.CreatedAt.After(*f.CreatedBefore) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memSessions) Latest(ctx context.Context, userID int64) (*models.Session, error) {
	list, _ := r.List(ctx, userID, models.SessionFilter{Limit: 1})
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *memSessions) Get(_ context.Context, id, userID int64) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (r *memSessions) Update(_ context.Context, id, userID int64, p models.SessionPatch) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrorNotFound
	}
	if p.SessionName != nil {
		s.SessionName = p.SessionName
	}
	if p.Description != nil {
		s.Description = p.Description
	}
	if p.EndTime != nil {
		s.EndTime = p.EndTime
		s.IsActive = false
	}
	if p.TotalDuration != nil {
		s.TotalDuration = *p.TotalDuration
	}
	if p.IsCompleted != nil {
		s.IsCompleted = *p.IsCompleted
	}
	c := *s
	return &c, nil
}

func (r *memSessions) Delete(_ context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

type memLaps struct {
	mu     sync.Mutex
	rows   map[int64]*models.Lap
	nextID int64
}

func (r *memLaps) Create(_ context.Context, l *models.Lap) (*models.Lap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.rows {
		if x.SessionID == l.SessionID {
			n++
		}
	}
	r.nextID++
	c := *l
	c.ID = r.nextID
	c.LapNumber = n + 1
	r.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memLaps) ListBySession(_ context.Context, sessionID, userID int64) ([]*models.Lap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Lap
	for _, x := range r.rows {
		if x.SessionID == sessionID && x.UserID == userID {
			c := *x
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LapNumber < out[j].LapNumber })
	return out, nil
}

func (r *memLaps) Get(_ context.Context, id, sessionID, userID int64) (*models.Lap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.SessionID != sessionID || x.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (r *memLaps) Update(_ context.Context, id, sessionID, userID int64, p models.LapPatch) (*models.Lap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.SessionID != sessionID || x.UserID != userID {
		return nil, common.ErrorNotFound
	}
	if p.LapName != nil {
		x.LapName = p.LapName
	}
	if p.EndTime != nil {
		x.EndTime = p.EndTime
		x.IsActive = false
	}
	if p.Duration != nil {
		x.Duration = p.Duration
	}
	c := *x
	return &c, nil
}

func (r *memLaps) Delete(_ context.Context, id, sessionID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.SessionID != sessionID || x.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

type memImages struct {
	mu        sync.Mutex
	rows      map[int64]*models.Image
	nextID    int64
	createErr error
}

func (r *memImages) Create(_ context.Context, img *models.Image) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	c := *img
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memImages) list(match func(*models.Image) bool) []*models.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Image
	for _, x := range r.rows {
		if match(x) {
			c := *x
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memImages) ListByLap(_ context.Context, lapID, sessionID, userID int64) ([]*models.Image, error) {
	return r.list(func(x *models.Image) bool {
		return x.LapID == lapID && x.SessionID == sessionID && x.UserID == userID
	}), nil
}

func (r *memImages) ListBySession(_ context.Context, sessionID, userID int64) ([]*models.Image, error) {
	return r.list(func(x *models.Image) bool { return x.SessionID == sessionID && x.UserID == userID }), nil
}

func (r *memImages) GetByUUID(_ context.Context, id uuid.UUID, userID int64) (*models.Image, error) {
	list := r.list(func(x *models.Image) bool { return x.ImageUUID == id && x.UserID == userID })
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *memImages) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

type memSettings struct {
	mu   sync.Mutex
	rows map[int64]*models.Settings
}

func (r *memSettings) Get(_ context.Context, userID int64) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (r *memSettings) CreateDefault(_ context.Context, userID int64) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.rows[userID]; ok {
		c := *x
		return &c, nil
	}
	d := models.DefaultSettings(userID)
	r.rows[userID] = &d
	c := d
	return &c, nil
}

func (r *memSettings) Update(_ context.Context, s *models.Settings) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.rows[s.UserID] = &c
	out := c
	return &out, nil
}

// fakeManager vends the same in-memory repositories for any handle.
type fakeManager struct {
	users    *memUsers
	refresh  *memRefresh
	sessions *memSessions
	laps     *memLaps
	images   *memImages
	settings *memSettings
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:    &memUsers{byID: map[int64]*models.User{}},
		refresh:  &memRefresh{rows: map[string]models.RefreshToken{}},
		sessions: &memSessions{rows: map[int64]*models.Session{}, clock: time.Date(2025, 2, 8, 12, 0, 0, 0, time.UTC)},
		laps:     &memLaps{rows: map[int64]*models.Lap{}},
		images:   &memImages{rows: map[int64]*models.Image{}},
		settings: &memSettings{rows: map[int64]*models.Settings{}},
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository           { return m.sessions }
func (m *fakeManager) Laps(dbx.DBTX) laps.Repository                   { return m.laps }
func (m *fakeManager) Images(dbx.DBTX) images.Repository               { return m.images }
func (m *fakeManager) Settings(dbx.DBTX) settings.Repository           { return m.settings }

// --- in-memory object store ---

type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploadErr  error
	deleteErr  error
	prefixErr  error
	presignErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, presignErr: map[string]error{}}
}

func (s *memStore) Bucket() string { return "clockwork-images" }

func (s *memStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if s.prefixErr != nil {
		return 0, s.prefixErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if err := s.presignErr[key]; err != nil {
		return "", err
	}
	return "https://minio.test/clockwork-images/" + key, nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// --- helpers ---

var errDBDown = errors.New("connection refused")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  30 * time.Minute,
		RefreshTokenValidityDuration: 30 * 24 * time.Hour,
		HashIterations:               1000,
		PresignExpiry:                time.Hour,
	}
}

func newUserService(t *testing.T, db *sql.DB, m *fakeManager, opts ...UserOption) *UserService {
	t.Helper()
	s, err := NewUserService(db, m, testConfig(), logging.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	return s
}

func strPtr(s string) *string { return &s }
