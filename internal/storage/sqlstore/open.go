// Package sqlstore persists mappings, settings and the delivery ledger in a
// SQL database through sqlx. Queries are written with '?' placeholders and
// rebound for the connected driver, so the same stores run on Postgres
// (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent mappings
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates missing tables inside one transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	runner := NewTxRunner(db)
	return runner.Run(ctx, func(ctx context.Context) error {
		exec := executor(ctx, db)
		for _, stmt := range strings.Split(schema, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := exec.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
