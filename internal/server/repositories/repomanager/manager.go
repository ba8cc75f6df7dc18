package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/otps"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	OTPs(db dbx.DBTX) otps.Repository
}
