// Package httpapi exposes the REST API of the backend over net/http.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/metrics"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

// Auth is the account and token surface used by the handlers.
type Auth interface {
	Signup(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string) (bool, error)
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	VerifyAccess(ctx context.Context, token string) (int64, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

type Sessions interface {
	Create(ctx context.Context, userID int64, in services.SessionInput) (*services.SessionDetail, error)
	List(ctx context.Context, userID int64, q services.ListQuery) ([]*models.Session, error)
	Latest(ctx context.Context, userID int64) (*services.SessionDetail, error)
	Get(ctx context.Context, userID, sessionID int64) (*services.SessionDetail, error)
	Update(ctx context.Context, userID, sessionID int64, in services.SessionUpdate) (*services.SessionDetail, error)
	Delete(ctx context.Context, userID, sessionID int64) error
	CreateLap(ctx context.Context, userID, sessionID int64, in services.LapInput) (*services.LapDetail, error)
	UpdateLap(ctx context.Context, userID, sessionID, lapID int64, in services.LapUpdate) (*services.LapDetail, error)
	DeleteLap(ctx context.Context, userID, sessionID, lapID int64) error
}

type Images interface {
	Upload(ctx context.Context, userID, sessionID, lapID int64, filename, contentType string, data []byte) (*services.ImageView, error)
	ListForLap(ctx context.Context, userID, sessionID, lapID int64) ([]services.ImageView, error)
	ListForSession(ctx context.Context, userID, sessionID int64) ([]services.ImageView, error)
	Delete(ctx context.Context, userID int64, imageID uuid.UUID) error
}

type Settings interface {
	Get(ctx context.Context, userID int64) (*models.Settings, error)
	Update(ctx context.Context, userID int64, p models.SettingsPatch) (*models.Settings, error)
	Reset(ctx context.Context, userID int64) error
}

// Pinger reports database reachability for /ready.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Server. Metrics may be nil.
type Deps struct {
	Auth        Auth
	Sessions    Sessions
	Images      Images
	Settings    Settings
	DB          Pinger
	Metrics     *metrics.Metrics
	Logger      logging.Logger
	CORSOrigins []string
	Version     string
}

type Server struct {
	auth        Auth
	sessions    Sessions
	images      Images
	settings    Settings
	db          Pinger
	metrics     *metrics.Metrics
	log         logging.Logger
	corsOrigins []string
	version     string
	now         func() time.Time
}

func NewServer(d Deps) *Server {
	return &Server{
		auth:        d.Auth,
		sessions:    d.Sessions,
		images:      d.Images,
		settings:    d.Settings,
		db:          d.DB,
		metrics:     d.Metrics,
		log:         d.Logger.With("module", "http"),
		corsOrigins: d.CORSOrigins,
		version:     d.Version,
		now:         time.Now,
	}
}

// Handler returns the routed API wrapped in the middleware chain
// recovery -> logging -> CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	protect := s.requireUser

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("POST /api/auth/logout-all", protect(s.handleLogoutAll))
	mux.Handle("POST /api/auth/password", protect(s.handleChangePassword))
	mux.Handle("GET /api/auth/me", protect(s.handleMe))

	mux.Handle("POST /api/sessions", protect(s.handleCreateSession))
	mux.Handle("GET /api/sessions", protect(s.handleListSessions))
	mux.Handle("GET /api/sessions/latest", protect(s.handleLatestSession))
	mux.Handle("GET /api/sessions/{id}", protect(s.handleGetSession))
	mux.Handle("PUT /api/sessions/{id}", protect(s.handleUpdateSession))
	mux.Handle("DELETE /api/sessions/{id}", protect(s.handleDeleteSession))
	mux.Handle("POST /api/sessions/{id}/laps", protect(s.handleCreateLap))
	mux.Handle("PUT /api/sessions/{id}/laps/{lapID}", protect(s.handleUpdateLap))
	mux.Handle("DELETE /api/sessions/{id}/laps/{lapID}", protect(s.handleDeleteLap))

	mux.Handle("POST /api/images/sessions/{sid}/laps/{lid}/upload", protect(s.handleUploadImage))
	mux.Handle("GET /api/images/sessions/{sid}/laps/{lid}", protect(s.handleLapImages))
	mux.Handle("GET /api/images/sessions/{sid}", protect(s.handleSessionImages))
	mux.Handle("DELETE /api/images/{imageID}", protect(s.handleDeleteImage))

	mux.Handle("GET /api/settings", protect(s.handleGetSettings))
	mux.Handle("PUT /api/settings", protect(s.handleUpdateSettings))
	mux.Handle("DELETE /api/settings", protect(s.handleResetSettings))

	return s.recovery(s.logging(s.cors(mux)))
}
