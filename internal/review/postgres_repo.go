package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Insert(ctx context.Context, rv *Review) error {
	if rv.ReviewDate.IsZero() {
		rv.ReviewDate = time.Now()
	}
	rv.ReviewDate = storedDate(rv.ReviewDate)

	const query = `
		INSERT INTO reviews (book_id, title, rating, review, review_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, review_date`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var persisted time.Time
	if err := r.db.QueryRow(timeoutCtx, query, rv.BookID, rv.Title, rv.Rating, rv.Review, rv.ReviewDate).Scan(&rv.ID, &persisted); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	rv.ReviewDate = persisted.UTC()
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) FindMatching(ctx context.Context, rv Review) (int64, error) {
	const query = `
		SELECT id
		FROM reviews
		WHERE book_id = $1 AND title = $2 AND rating = $3 AND review = $4 AND review_date = $5
		ORDER BY id
		LIMIT 1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var id int64
	err := r.db.QueryRow(timeoutCtx, query, rv.BookID, rv.Title, rv.Rating, rv.Review, storedDate(rv.ReviewDate)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepo) AverageRating(ctx context.Context, bookID int) (*float64, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var average sql.NullFloat64
	if err := r.db.QueryRow(timeoutCtx, `SELECT AVG(rating)::FLOAT FROM reviews WHERE book_id = $1`, bookID).Scan(&average); err != nil {
		return nil, err
	}
	if !average.Valid {
		return nil, nil
	}
	return &average.Float64, nil
}

func (r *PostgresRepo) ReviewTexts(ctx context.Context, bookID int) ([]string, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, `SELECT review FROM reviews WHERE book_id = $1 ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) TopBooks(ctx context.Context, n int) ([]BookStats, error) {
	const query = `
		SELECT book_id, MIN(title), AVG(rating)::FLOAT AS avg_rating, COUNT(*)
		FROM reviews
		GROUP BY book_id
		ORDER BY avg_rating DESC, book_id ASC
		LIMIT $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookStats
	for rows.Next() {
		var s BookStats
		if err := rows.Scan(&s.BookID, &s.Title, &s.AvgRating, &s.ReviewCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) RatingPerMonth(ctx context.Context, bookID int) ([]MonthlyRating, error) {
	const query = `
		SELECT MIN(title),
		       EXTRACT(YEAR FROM review_date AT TIME ZONE 'UTC')::INT AS year,
		       EXTRACT(MONTH FROM review_date AT TIME ZONE 'UTC')::INT AS month,
		       AVG(rating)::FLOAT,
		       COUNT(*)
		FROM reviews
		WHERE book_id = $1
		GROUP BY year, month
		ORDER BY year, month`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyRating
	for rows.Next() {
		var m MonthlyRating
		if err := rows.Scan(&m.Title, &m.Year, &m.Month, &m.AvgRating, &m.MonthCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
