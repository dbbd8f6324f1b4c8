package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"bookreview/internal/config"
	"bookreview/internal/logging"
	"bookreview/internal/platform/postgres"
	"bookreview/internal/platform/sqlite"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	logger := logging.New(logging.Config{Level: "info", Format: "text"})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	driver := cfg.Store.Driver
	dir := migrationsDir(driver)

	if *command == "create" {
		if *name == "" {
			logger.Fatal().Msg("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			logger.Fatal().Err(err).Msg("failed to create migration")
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	if err := migrate(ctx, cfg.Store, dir, *command); err != nil {
		logger.Fatal().Err(err).Str("driver", driver).Str("command", *command).Msg("migration failed")
	}
}

// migrate runs one goose command against the configured store and closes it
// before returning.
func migrate(ctx context.Context, cfg config.StoreConfig, dir, command string) error {
	db, dialect, closeDB, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer closeDB()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		if err := goose.StatusContext(ctx, db, dir); err != nil {
			return fmt.Errorf("check migration status: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, create", command)
	}
	return nil
}

func openDB(ctx context.Context, cfg config.StoreConfig) (*sql.DB, string, func(), error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", nil, err
		}
		return db, "sqlite3", func() { db.Close() }, nil
	}

	pool, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, "", nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	return db, "postgres", func() {
		db.Close()
		pool.Close()
	}, nil
}
