package ctl

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

// Backend is the server-side surface the admin commands operate on.
type Backend interface {
	Migrate(ctx context.Context) error
	AddUser(ctx context.Context, username, password string) (*models.User, error)
	RevokeAll(ctx context.Context, username string) (int64, error)
	Close() error
}

// Opener connects a Backend for cfg.
type Opener func(ctx context.Context, cfg *config.Config, log logging.Logger) (Backend, error)

type dbBackend struct {
	db    *sql.DB
	rm    *repomanager.PostgresRepositoryManager
	users *services.UserService
}

// OpenBackend connects to the database named by cfg.DatabaseDSN.
func OpenBackend(ctx context.Context, cfg *config.Config, log logging.Logger) (Backend, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	us, err := services.NewUserService(db, rm, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &dbBackend{db: db, rm: rm, users: us}, nil
}

func (b *dbBackend) Migrate(ctx context.Context) error {
	return b.rm.RunMigrations(ctx, b.db)
}

func (b *dbBackend) AddUser(ctx context.Context, username, password string) (*models.User, error) {
	u, _, err := b.users.Signup(ctx, username, password)
	return u, err
}

func (b *dbBackend) RevokeAll(ctx context.Context, username string) (int64, error) {
	u, err := b.users.UserByName(ctx, username)
	if err != nil {
		return 0, err
	}
	return b.users.RevokeAll(ctx, u.ID)
}

func (b *dbBackend) Close() error {
	return b.db.Close()
}
