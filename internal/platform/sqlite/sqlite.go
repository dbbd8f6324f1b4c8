// Package sqlite opens the embedded SQLite review store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookreview/db"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Open opens path with the modernc driver. The pool holds a single
// connection so writes never contend for the database lock.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		closeErr := sqlDB.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to database: %w", err), closeErr)
	}
	return sqlDB, nil
}

// Migrate runs the embedded sqlite migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB) (int, error) {
	return db.Up(ctx, sqlDB, goose.DialectSQLite3)
}
