package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/metrics"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

const (
	goodAccess  = "access-ok"
	goodRefresh = "refresh-ok"
	testUserID  = int64(42)
)

// fakeAuth accepts "alice"/"correct-pw" and the tokens above.
type fakeAuth struct {
	verifyErr  error
	getUserErr error
	revokeErr  error
	signupErr  error
	revokedAll int64
	changedTo  string
}

func (f *fakeAuth) Signup(_ context.Context, username, _ string) (*models.User, *services.TokenPair, error) {
	if f.signupErr != nil {
		return nil, nil, f.signupErr
	}
	return &models.User{ID: testUserID, UserName: username}, &services.TokenPair{AccessToken: goodAccess, RefreshToken: goodRefresh}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (*models.User, *services.TokenPair, error) {
	if username != "alice" || password != "correct-pw" {
		return nil, nil, common.ErrorUnauthorized
	}
	return &models.User{ID: testUserID, UserName: username}, &services.TokenPair{AccessToken: goodAccess, RefreshToken: goodRefresh}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (string, error) {
	if token != goodRefresh {
		return "", common.ErrInvalidToken
	}
	return "access-new", nil
}

func (f *fakeAuth) Revoke(_ context.Context, token string) (bool, error) {
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	return token == goodRefresh, nil
}

func (f *fakeAuth) RevokeAll(_ context.Context, userID int64) (int64, error) {
	f.revokedAll = userID
	return 2, nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, _ int64, oldPassword, newPassword string) error {
	if oldPassword != "correct-pw" {
		return common.ErrorUnauthorized
	}
	f.changedTo = newPassword
	return nil
}

func (f *fakeAuth) VerifyAccess(_ context.Context, token string) (int64, error) {
	if f.verifyErr != nil {
		return 0, f.verifyErr
	}
	if token != goodAccess {
		return 0, common.ErrInvalidToken
	}
	return testUserID, nil
}

func (f *fakeAuth) GetUser(_ context.Context, userID int64) (*models.User, error) {
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	return &models.User{ID: userID, UserName: "alice", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

// fakeSessions serves a single session 7 with lap 3 owned by testUserID.
type fakeSessions struct {
	lastQuery  services.ListQuery
	lastUpdate services.SessionUpdate
	panicOnGet bool
}

func sampleSession() *models.Session {
	start := time.Date(2025, 2, 8, 15, 30, 0, 0, time.UTC)
	return &models.Session{
		ID:          7,
		SessionUUID: uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		UserID:      testUserID,
		SessionName: strPtr("Deep work"),
		StartTime:   &start,
		IsActive:    true,
		CreatedAt:   start,
	}
}

func sampleLap() services.LapDetail {
	return services.LapDetail{
		Lap: &models.Lap{ID: 3, LapUUID: uuid.New(), SessionID: 7, LapNumber: 1, IsActive: true},
		Images: []services.ImageView{{
			ImageID: "9d4f0c1e-0000-4000-8000-000000000000", ImageName: "a.png", LapID: 3,
			URL: "https://minio.test/a.png", MimeType: "image/png", FileSize: 4,
		}},
	}
}

func (f *fakeSessions) owned(userID, sessionID int64) error {
	if userID != testUserID || sessionID != 7 {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeSessions) Create(_ context.Context, _ int64, in services.SessionInput) (*services.SessionDetail, error) {
	s := sampleSession()
	s.SessionName = in.Name
	return &services.SessionDetail{Session: s, Laps: []services.LapDetail{}}, nil
}

func (f *fakeSessions) List(_ context.Context, _ int64, q services.ListQuery) ([]*models.Session, error) {
	f.lastQuery = q
	return []*models.Session{sampleSession()}, nil
}

func (f *fakeSessions) Latest(_ context.Context, _ int64) (*services.SessionDetail, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeSessions) Get(_ context.Context, userID, sessionID int64) (*services.SessionDetail, error) {
	if f.panicOnGet {
		panic("boom")
	}
	if err := f.owned(userID, sessionID); err != nil {
		return nil, err
	}
	return &services.SessionDetail{Session: sampleSession(), Laps: []services.LapDetail{sampleLap()}}, nil
}

func (f *fakeSessions) Update(_ context.Context, userID, sessionID int64, in services.SessionUpdate) (*services.SessionDetail, error) {
	if err := f.owned(userID, sessionID); err != nil {
		return nil, err
	}
	f.lastUpdate = in
	s := sampleSession()
	s.IsActive = in.EndedAt == nil
	return &services.SessionDetail{Session: s, Laps: []services.LapDetail{}}, nil
}

func (f *fakeSessions) Delete(_ context.Context, userID, sessionID int64) error {
	return f.owned(userID, sessionID)
}

func (f *fakeSessions) CreateLap(_ context.Context, userID, sessionID int64, _ services.LapInput) (*services.LapDetail, error) {
	if err := f.owned(userID, sessionID); err != nil {
		return nil, err
	}
	l := sampleLap()
	l.Images = []services.ImageView{}
	return &l, nil
}

func (f *fakeSessions) UpdateLap(_ context.Context, userID, sessionID, lapID int64, _ services.LapUpdate) (*services.LapDetail, error) {
	if err := f.owned(userID, sessionID); err != nil || lapID != 3 {
		return nil, common.ErrorNotFound
	}
	l := sampleLap()
	return &l, nil
}

func (f *fakeSessions) DeleteLap(_ context.Context, userID, sessionID, lapID int64) error {
	if err := f.owned(userID, sessionID); err != nil || lapID != 3 {
		return common.ErrorNotFound
	}
	return nil
}

type fakeImages struct {
	uploadedName string
	uploadedType string
	uploadedData []byte
	err          error
}

func (f *fakeImages) Upload(_ context.Context, _, _, _ int64, filename, contentType string, data []byte) (*services.ImageView, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.uploadedName, f.uploadedType, f.uploadedData = filename, contentType, data
	v := sampleLap().Images[0]
	v.ImageName = filename
	return &v, nil
}

func (f *fakeImages) ListForLap(context.Context, int64, int64, int64) ([]services.ImageView, error) {
	return sampleLap().Images, nil
}

func (f *fakeImages) ListForSession(context.Context, int64, int64) ([]services.ImageView, error) {
	return nil, common.ErrStorageUnavailable
}

func (f *fakeImages) Delete(_ context.Context, _ int64, id uuid.UUID) error {
	if id.String() != sampleLap().Images[0].ImageID {
		return common.ErrorNotFound
	}
	return nil
}

type fakeSettings struct {
	st models.Settings
}

func (f *fakeSettings) Get(_ context.Context, userID int64) (*models.Settings, error) {
	if f.st.UserID == 0 {
		f.st = models.DefaultSettings(userID)
	}
	c := f.st
	return &c, nil
}

func (f *fakeSettings) Update(ctx context.Context, userID int64, p models.SettingsPatch) (*models.Settings, error) {
	st, _ := f.Get(ctx, userID)
	p.Apply(st)
	f.st = *st
	return st, nil
}

func (f *fakeSettings) Reset(_ context.Context, userID int64) error {
	f.st = models.DefaultSettings(userID)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testServer struct {
	auth     *fakeAuth
	sessions *fakeSessions
	images   *fakeImages
	settings *fakeSettings
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		auth:     &fakeAuth{},
		sessions: &fakeSessions{},
		images:   &fakeImages{},
		settings: &fakeSettings{},
	}
	srv := NewServer(Deps{
		Auth:        ts.auth,
		Sessions:    ts.sessions,
		Images:      ts.images,
		Settings:    ts.settings,
		DB:          fakePinger{},
		Metrics:     metrics.New(),
		Logger:      logging.Nop(),
		CORSOrigins: []string{"http://localhost:5173"},
		Version:     "test",
	})
	ts.handler = srv.Handler()
	return ts
}

// do sends a JSON request, with the bearer token when token is not empty.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[detailResponse](t, rec).Detail
}

func strPtr(s string) *string { return &s }
