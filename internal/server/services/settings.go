package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
)

type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *SettingsService {
	return &SettingsService{db: db, repomanager: m, log: log.With("module", "settings")}
}

// Get returns the user's settings, creating the defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID int64) (*models.Settings, error) {
	repo := s.repomanager.Settings(s.db)

	st, err := repo.Get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, storageErr("get settings", err)
	}

	st, err = repo.CreateDefault(ctx, userID)
	if err != nil {
		return nil, storageErr("create settings", err)
	}
	return st, nil
}

func (s *SettingsService) Update(ctx context.Context, userID int64, p models.SettingsPatch) (*models.Settings, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Apply(st)

	st, err = s.repomanager.Settings(s.db).Update(ctx, st)
	if err != nil {
		return nil, storageErr("update settings", err)
	}
	return st, nil
}

// Reset restores the defaults for the user.
func (s *SettingsService) Reset(ctx context.Context, userID int64) error {
	def := models.DefaultSettings(userID)
	if _, err := s.repomanager.Settings(s.db).Update(ctx, &def); err != nil {
		return storageErr("reset settings", err)
	}
	s.log.Info(ctx, "settings reset", "user_id", userID)
	return nil
}
