package repomanager

import (
	"context"
	"database/sql"

	"github.com/justlikeclockwork/clockwork/internal/dbx"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/images"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/laps"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/refreshtokens"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/sessions"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/settings"
	"github.com/justlikeclockwork/clockwork/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or *sql.Tx, so a
// service can run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Laps(db dbx.DBTX) laps.Repository
	Images(db dbx.DBTX) images.Repository
	Settings(db dbx.DBTX) settings.Repository
}
