package repository

import (
	"context"
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database behind driver and dsn.
func Open(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "pg", "postgresql":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, goerrors.New("unsupported database driver "+driver, goerrors.CategoryValidation)
	}
}

// CreateSchema creates the tables and indexes used by the service. It is
// idempotent.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*UserAccountModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user_accounts")
	}

	if _, err := db.NewCreateTable().
		Model((*ClaimModel)(nil)).
		IfNotExists().
		ForeignKey(`("user_account_id") REFERENCES "user_accounts" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user_account_claims")
	}

	if _, err := db.NewCreateTable().
		Model((*OutboxMessage)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create outbox_messages")
	}

	if _, err := db.NewCreateIndex().
		Model((*OutboxMessage)(nil)).
		Index("idx_outbox_messages_pending").
		Column("processed_at", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create outbox index")
	}

	if _, err := db.NewCreateIndex().
		Model((*UserAccountModel)(nil)).
		Index("idx_user_accounts_refresh_token").
		Column("refresh_token_value").
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh token index")
	}

	return nil
}
