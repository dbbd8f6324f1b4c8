package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqliteDateLayout is fixed-width so dates sort and slice as text.
const sqliteDateLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteRepo stores reviews through database/sql with the modernc driver.
// Callers should cap the pool at one connection so writes are serialized.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func formatSQLiteDate(t time.Time) string {
	return storedDate(t).Format(sqliteDateLayout)
}

func (r *SQLiteRepo) Insert(ctx context.Context, rv *Review) error {
	if rv.ReviewDate.IsZero() {
		rv.ReviewDate = time.Now()
	}
	rv.ReviewDate = storedDate(rv.ReviewDate)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (book_id, title, rating, review, review_date) VALUES (?, ?, ?, ?, ?)`,
		rv.BookID, rv.Title, rv.Rating, rv.Review, rv.ReviewDate.Format(sqliteDateLayout),
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	rv.ID = id
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) FindMatching(ctx context.Context, rv Review) (int64, error) {
	const query = `
		SELECT id
		FROM reviews
		WHERE book_id = ? AND title = ? AND rating = ? AND review = ? AND review_date = ?
		ORDER BY id
		LIMIT 1`

	var id int64
	err := r.db.QueryRowContext(ctx, query, rv.BookID, rv.Title, rv.Rating, rv.Review, formatSQLiteDate(rv.ReviewDate)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepo) AverageRating(ctx context.Context, bookID int) (*float64, error) {
	var average sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, `SELECT AVG(rating) FROM reviews WHERE book_id = ?`, bookID).Scan(&average); err != nil {
		return nil, err
	}
	if !average.Valid {
		return nil, nil
	}
	return &average.Float64, nil
}

func (r *SQLiteRepo) ReviewTexts(ctx context.Context, bookID int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT review FROM reviews WHERE book_id = ? ORDER BY id`, bookID)
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

func (r *SQLiteRepo) TopBooks(ctx context.Context, n int) ([]BookStats, error) {
	const query = `
		SELECT book_id, MIN(title), AVG(rating) AS avg_rating, COUNT(*)
		FROM reviews
		GROUP BY book_id
		ORDER BY avg_rating DESC, book_id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, n)
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

func (r *SQLiteRepo) RatingPerMonth(ctx context.Context, bookID int) ([]MonthlyRating, error) {
	const query = `
		SELECT MIN(title),
		       CAST(substr(review_date, 1, 4) AS INTEGER) AS year,
		       CAST(substr(review_date, 6, 2) AS INTEGER) AS month,
		       AVG(rating),
		       COUNT(*)
		FROM reviews
		WHERE book_id = ?
		GROUP BY year, month
		ORDER BY year, month`

	rows, err := r.db.QueryContext(ctx, query, bookID)
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

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
