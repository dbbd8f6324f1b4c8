// Package db embeds the goose migrations for each supported store.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "migrations/postgres"
	SQLiteDir   = "migrations/sqlite"
)

// Dir returns the embedded migration directory for dialect.
func Dir(dialect goose.Dialect) (string, error) {
	switch dialect {
	case goose.DialectPostgres:
		return PostgresDir, nil
	case goose.DialectSQLite3:
		return SQLiteDir, nil
	}
	return "", fmt.Errorf("no migrations for dialect %q", dialect)
}

// Up applies every pending migration for dialect and returns how many ran.
func Up(ctx context.Context, sqlDB *sql.DB, dialect goose.Dialect) (int, error) {
	dir, err := Dir(dialect)
	if err != nil {
		return 0, err
	}
	fsys, err := fs.Sub(Migrations, dir)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return len(results), nil
}
