package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
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
	count := flag.Int("count", 200, "Number of reviews to generate")
	flag.Parse()

	config.LoadEnvFiles()
	logger := logging.New(logging.Config{Level: "info", Format: "text"})
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(context.Background(), cfg, *count, logger); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
}

// run seeds count reviews and releases the store before returning.
func run(ctx context.Context, cfg *config.Config, count int, logger zerolog.Logger) error {
	repo, closeStore, err := openRepo(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	client := gutendex.NewClient(cfg.Gutendex.URL, cfg.Gutendex.UserAgent, cfg.Gutendex.RPS, cfg.Gutendex.Timeout)
	s := &seeder{
		catalog: client,
		repo:    repo,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now(),
		logger:  logger,
	}

	logger.Info().Int("count", count).Msg("generating reviews")
	inserted, err := s.run(ctx, count)
	if err != nil {
		return fmt.Errorf("after %d reviews: %w", inserted, err)
	}
	logger.Info().Int("inserted", inserted).Msg("seeding finished")
	return nil
}

func openRepo(ctx context.Context, cfg config.StoreConfig) (review.Repository, func(), error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if _, err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return review.NewSQLiteRepo(db), func() { db.Close() }, nil
	}

	pool, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return review.NewPostgresRepo(pool, cfg.QueryTimeout), pool.Close, nil
}
