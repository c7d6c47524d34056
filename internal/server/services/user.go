// Package services contains server-side business logic. This file implements
// UserService, which handles signup, login, and issuing, verifying and
// revoking access and refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/auth"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
	"github.com/justlikeclockwork/clockwork/internal/server/metrics"
	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/repomanager"
)

// dummyPassword is hashed once per service so that logins for unknown users
// still pay for one full verification.
const dummyPassword = "clockwork-timing-equalizer"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
//   - Signup and Login: create or check credentials and mint a TokenPair
//   - MintAccess, MintRefresh, VerifyAccess, VerifyRefresh: token lifecycle
//   - Revoke and RevokeAll: refresh-token revocation
//
// Every credential or token failure is returned as common.ErrorUnauthorized
// or common.ErrInvalidToken. Storage outages are wrapped with
// common.ErrStorageUnavailable.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	codec       *auth.TokenCodec
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
	log         logging.Logger
	metrics     *metrics.Metrics
	dummyHash   string
}

type UserOption func(*UserService)

// WithClock replaces time.Now for token expiry and store lookups.
func WithClock(now func() time.Time) UserOption {
	return func(s *UserService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) UserOption {
	return func(s *UserService) { s.metrics = m }
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, opts ...UserOption) (*UserService, error) {
	s := &UserService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewPasswordHasher(cfg.HashIterations),
		accessTTL:   cfg.AccessTokenValidityDuration,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
		now:         time.Now,
		log:         log.With("module", "users"),
	}
	for _, opt := range opts {
		opt(s)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.SecretKey), auth.WithClock(s.now))
	if err != nil {
		return nil, err
	}
	s.codec = codec

	s.dummyHash, err = s.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return s, nil
}

func subjectOf(userID int64) string { return strconv.FormatInt(userID, 10) }

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorageUnavailable, err)
}

// Signup creates the user and its default settings in one transaction and
// issues a TokenPair. A taken username yields common.ErrorAlreadyExists.
func (s *UserService) Signup(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{UserName: username, PasswordHash: hash})
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Settings(tx).CreateDefault(ctx, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, common.ErrorAlreadyExists
		}
		return nil, nil, storageErr("signup", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID)

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login checks the credentials and issues a TokenPair. Unknown users and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.metrics.Login("failure")
			s.log.Warn(ctx, "login rejected", "reason", "credential_mismatch")
			return nil, nil, common.ErrorUnauthorized
		}
		s.metrics.Login("error")
		return nil, nil, storageErr("login", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		reason := "credential_mismatch"
		if err := auth.Check(user.PasswordHash); err != nil {
			reason = "malformed_record"
		}
		s.metrics.Login("failure")
		s.log.Warn(ctx, "login rejected", "reason", reason, "user_id", user.ID)
		return nil, nil, common.ErrorUnauthorized
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		s.metrics.Login("error")
		return nil, nil, err
	}
	s.metrics.Login("success")
	return user, pair, nil
}

// rehash stores password under the current iteration count. Failures are
// logged only.
func (s *UserService) rehash(ctx context.Context, userID int64, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repomanager.Users(s.db).UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	s.log.Info(ctx, "password rehashed", "user_id", userID, "iterations", s.hasher.Iterations())
}

func (s *UserService) issue(ctx context.Context, userID int64) (*TokenPair, error) {
	access, err := s.MintAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.MintRefresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// MintAccess signs a stateless access token for userID.
func (s *UserService) MintAccess(userID int64) (string, error) {
	token, _, err := s.codec.Encode(subjectOf(userID), auth.AccessToken, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return token, nil
}

// MintRefresh sweeps the user's expired refresh tokens, then signs and
// stores a new one. A failed sweep is logged and does not stop issuance.
func (s *UserService) MintRefresh(ctx context.Context, userID int64) (string, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	removed, err := repo.DeleteExpired(ctx, userID, s.now())
	s.metrics.RefreshSweep(removed, err)
	if err != nil {
		s.log.Warn(ctx, "expired refresh token sweep failed", "user_id", userID, "error", err)
	} else if removed > 0 {
		s.log.Debug(ctx, "expired refresh tokens swept", "user_id", userID, "count", removed)
	}

	token, expiresAt, err := s.codec.Encode(subjectOf(userID), auth.RefreshToken, s.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := repo.Create(ctx, token, userID, expiresAt); err != nil {
		if errors.Is(err, common.ErrDuplicateToken) {
			s.log.Error(ctx, "refresh token collision", "user_id", userID)
			return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		return "", storageErr("store refresh token", err)
	}
	return token, nil
}

// VerifyAccess returns the user ID carried by a valid access token.
func (s *UserService) VerifyAccess(ctx context.Context, token string) (int64, error) {
	return s.decode(ctx, token, auth.AccessToken)
}

// VerifyRefresh returns the user ID of a refresh token that both decodes
// and is still present, unexpired, in the store. A revoked token fails even
// if its signature and expiry are fine.
func (s *UserService) VerifyRefresh(ctx context.Context, token string) (int64, error) {
	userID, err := s.decode(ctx, token, auth.RefreshToken)
	if err != nil {
		return 0, err
	}

	if _, err := s.repomanager.RefreshTokens(s.db).FindValid(ctx, token, userID, s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.reject(ctx, common.ErrTokenRevoked, userID)
			return 0, common.ErrInvalidToken
		}
		return 0, storageErr("find refresh token", err)
	}
	return userID, nil
}

func (s *UserService) decode(ctx context.Context, token string, typ auth.TokenType) (int64, error) {
	sub, err := s.codec.Decode(token, typ)
	if err != nil {
		s.reject(ctx, err, 0)
		return 0, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		s.reject(ctx, common.ErrTokenMalformed, 0)
		return 0, common.ErrInvalidToken
	}
	return userID, nil
}

func (s *UserService) reject(ctx context.Context, err error, userID int64) {
	kind := auth.Kind(err)
	s.metrics.TokenRejected(kind)

	args := []any{"kind", kind}
	if userID != 0 {
		args = append(args, "user_id", userID)
	}
	s.log.Warn(ctx, "token rejected", args...)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself stays valid.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return s.MintAccess(userID)
}

// Revoke deletes one refresh token and reports whether it was stored.
func (s *UserService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	ok, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
	if err != nil {
		return false, storageErr("revoke refresh token", err)
	}
	return ok, nil
}

// RevokeAll deletes every refresh token of userID.
func (s *UserService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, storageErr("revoke refresh tokens", err)
	}
	s.log.Info(ctx, "refresh tokens revoked", "user_id", userID, "count", n)
	return n, nil
}

// ChangePassword replaces the password after checking the old one and
// revokes every refresh token of the user.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	users := s.repomanager.Users(s.db)

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return storageErr("load user", err)
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		s.log.Warn(ctx, "password change rejected", "user_id", userID)
		return common.ErrorUnauthorized
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return storageErr("update password", err)
	}

	_, err = s.RevokeAll(ctx, userID)
	return err
}

// GetUser returns the user by ID or common.ErrorNotFound.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, storageErr("load user", err)
	}
	return user, nil
}

// UserByName returns the user by username or common.ErrorNotFound.
func (s *UserService) UserByName(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, storageErr("load user", err)
	}
	return user, nil
}
