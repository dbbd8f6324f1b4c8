package review

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the catalog or the store has no match.
	ErrNotFound = errors.New("not found")
	// ErrUnprocessable is returned when input violates a domain invariant.
	ErrUnprocessable = errors.New("unprocessable entity")
	// ErrUpstream is returned when the catalog is unreachable or malformed.
	ErrUpstream = errors.New("upstream failure")
)

// Review is a persisted user review of a catalog book.
type Review struct {
	ID         int64     `json:"id"`
	BookID     int       `json:"book_id"`
	Title      string    `json:"title"`
	Rating     float64   `json:"rating"`
	Review     string    `json:"review"`
	ReviewDate time.Time `json:"review_date"`
}

// BookStats is one group of the top-N aggregation.
type BookStats struct {
	BookID      int
	Title       string
	AvgRating   float64
	ReviewCount int
}

// MonthlyRating is one calendar month (UTC) of a book's ratings.
type MonthlyRating struct {
	Title      string
	Year       int
	Month      int
	AvgRating  float64
	MonthCount int
}

// Repository is the review store.
type Repository interface {
	// Insert assigns r.ID and stores the persisted review date back into r.
	Insert(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id int64) error
	// FindMatching returns the lowest id whose fields all equal r's, ignoring r.ID.
	FindMatching(ctx context.Context, r Review) (int64, error)
	// AverageRating returns nil when the book has no reviews.
	AverageRating(ctx context.Context, bookID int) (*float64, error)
	ReviewTexts(ctx context.Context, bookID int) ([]string, error)
	// TopBooks orders by average rating descending, then book id ascending.
	TopBooks(ctx context.Context, n int) ([]BookStats, error)
	// RatingPerMonth orders by year then month, both ascending.
	RatingPerMonth(ctx context.Context, bookID int) ([]MonthlyRating, error)
	Ping(ctx context.Context) error
}

// storedDate is the precision both stores keep for review dates.
func storedDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
