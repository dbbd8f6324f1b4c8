package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookreview/internal/config"
	"bookreview/internal/logging"
	"bookreview/internal/platform/gutendex"
	"bookreview/internal/platform/postgres"
	"bookreview/internal/platform/sqlite"
	"bookreview/internal/review"

	"github.com/rs/zerolog"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("cannot open review store")
	}
	defer closeStore()

	client := gutendex.NewClient(cfg.Gutendex.URL, cfg.Gutendex.UserAgent, cfg.Gutendex.RPS, cfg.Gutendex.Timeout)
	service := review.NewService(client, repo, review.Options{
		CacheCapacity: cfg.Catalog.CacheCapacity,
		Paginate:      cfg.Catalog.Paginate,
		MaxPages:      cfg.Catalog.MaxPages,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(ctx, cfg.Server, review.NewHTTPHandler(service), repo, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Driver).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore connects the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (review.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		applied, err := sqlite.Migrate(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Int("migrations_applied", applied).Msg("sqlite store ready")
		return review.NewSQLiteRepo(db), func() { db.Close() }, nil

	default:
		pool, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Str("dsn", postgres.RedactDSN(cfg.DSN)).Int("migrations_applied", applied).Msg("database connection OK")
		return review.NewPostgresRepo(pool, cfg.QueryTimeout), pool.Close, nil
	}
}
