package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/passkeeper/internal/dbx"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/passfiles"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/passkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// run several of them inside one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	PassFiles(db dbx.DBTX) passfiles.Repository
}
