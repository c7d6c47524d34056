// Package server wires the Clockwork backend together: it opens the
// database, applies migrations, prepares the image bucket, builds the
// services and runs the HTTP API and the gRPC health endpoint until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/justlikeclockwork/clockwork/internal/buildinfo"
	"github.com/justlikeclockwork/clockwork/internal/filex"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
	"github.com/justlikeclockwork/clockwork/internal/server/httpapi"
	"github.com/justlikeclockwork/clockwork/internal/server/metrics"
	"github.com/justlikeclockwork/clockwork/internal/server/objectstore"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
	"github.com/justlikeclockwork/clockwork/internal/server/services"

	gs "github.com/justlikeclockwork/clockwork/internal/server/grpc"
)

const (
	maxOpenConns       = 30
	connMaxLifetime    = 5 * time.Minute
	healthInterval     = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
	bucketSetupTimeout = 15 * time.Second
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	logFile  io.Closer
	db       *sql.DB
	metrics  *metrics.Metrics
	users    *services.UserService
	sessions *services.SessionService
	images   *services.ImageService
	settings *services.SettingsService
}

// NewLogger builds the application logger. When c.LogDir is set, output
// also goes to <LogDir>/app.log and the returned closer releases the file.
func NewLogger(c *config.Config) (logging.Logger, io.Closer, error) {
	if c.LogDir == "" {
		return logging.New(c.LogLevel, os.Stdout), nil, nil
	}
	f, err := filex.OpenAppend(c.LogDir, "app.log")
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	return logging.New(c.LogLevel, os.Stdout, f), f, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logFile, err := NewLogger(c)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger, logFile: logFile, metrics: metrics.New()}

	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "using the default secret key, set SECRET_KEY in production")
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := objectstore.New(ctx, c, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	bctx, cancel := context.WithTimeout(ctx, bucketSetupTimeout)
	if err := store.EnsureBucket(bctx); err != nil {
		logger.Warn(ctx, "bucket setup failed, image uploads may fail", "bucket", store.Bucket(), "error", err)
	}
	cancel()

	app.users, err = services.NewUserService(db, rm, c, logger, services.WithMetrics(app.metrics))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.sessions = services.NewSessionService(db, rm, store, c.PresignExpiry, logger)
	app.images = services.NewImageService(db, rm, store, c.PresignExpiry, logger)
	app.settings = services.NewSettingsService(db, rm, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) handler() http.Handler {
	return httpapi.NewServer(httpapi.Deps{
		Auth:        app.users,
		Sessions:    app.sessions,
		Images:      app.images,
		Settings:    app.settings,
		DB:          app.db,
		Metrics:     app.metrics,
		Logger:      app.logger,
		CORSOrigins: app.config.CORSOrigins,
		Version:     buildinfo.Version,
	}).Handler()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(sctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.db, app.logger)
	go s.Watch(ctx, healthInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a shutdown signal arrives or a server fails, then
// releases the database and the log file.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version, "commit", buildinfo.Commit)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	app.Close()
}

// Close releases the database pool and the log file.
func (app *App) Close() {
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
	if app.logFile != nil {
		_ = app.logFile.Close()
		app.logFile = nil
	}
}
