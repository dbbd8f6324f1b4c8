package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"bookreview/internal/cache"
	"bookreview/internal/catalog"

	"github.com/go-playground/validator/v10"
)

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	CacheCapacity int
	Paginate      bool
	// MaxPages bounds the catalog fetches of a paginated search; config.Load
	// guarantees at least 1.
	MaxPages int
	Now      func() time.Time
}

// Service combines the upstream catalog with the review store.
type Service struct {
	catalog   catalog.Source
	repo      Repository
	titles    *cache.FIFO[string, SearchResult]
	books     *cache.FIFO[int, *catalog.Page]
	paginate  bool
	maxPages  int
	now       func() time.Time
	validator *validator.Validate
}

// NewService wires a catalog source and a review store behind two FIFO caches.
func NewService(src catalog.Source, repo Repository, opts Options) *Service {
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = cache.DefaultCapacity
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = catalog.DefaultMaxDepth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		catalog:   src,
		repo:      repo,
		titles:    cache.New[string, SearchResult]("title", opts.CacheCapacity),
		books:     cache.New[int, *catalog.Page]("book", opts.CacheCapacity),
		paginate:  opts.Paginate,
		maxPages:  opts.MaxPages,
		now:       opts.Now,
		validator: validator.New(),
	}
}

// SearchResult is either a flat book list or a paginated tree, depending on
// how the service is configured.
type SearchResult struct {
	Books []catalog.BookSummary
	Pages *catalog.PaginatedResult
}

// MarshalJSON emits the paginated tree when present, otherwise {"books": [...]}.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	if r.Pages != nil {
		return json.Marshal(r.Pages)
	}
	books := r.Books
	if books == nil {
		books = []catalog.BookSummary{}
	}
	return json.Marshal(catalog.BookList{Books: books})
}

// ReviewInput is a review submission before the catalog title is attached.
type ReviewInput struct {
	BookID int
	Rating float64 `validate:"gte=0,lte=5"`
	Review string  `validate:"required"`
}

// BookWithReviews is a catalog summary joined with its local reviews.
type BookWithReviews struct {
	catalog.BookSummary
	Rating  *float64 `json:"rating"`
	Reviews []string `json:"reviews"`
}

// TopBook is one row of the best-rated books report.
type TopBook struct {
	BookID          int     `json:"BookId"`
	Title           string  `json:"Title"`
	AverageRating   float64 `json:"AverageRating"`
	NumberOfReviews int     `json:"NumberOfReviews"`
}

// MonthlyReport is the rounded average rating of a book for one month.
type MonthlyReport struct {
	BookID        int     `json:"BookId"`
	Title         string  `json:"Title"`
	Year          int     `json:"Year"`
	Month         int     `json:"Month"`
	AverageRating float64 `json:"AverageRating"`
	MonthCount    int     `json:"MonthCount"`
}

func (s *Service) fetch(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	page, err := s.catalog.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if page == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return page, nil
}

// SearchBooks looks a title up in the catalog. Results are cached by the
// exact query string.
func (s *Service) SearchBooks(ctx context.Context, query string) (SearchResult, error) {
	if query == "" {
		return SearchResult{Books: []catalog.BookSummary{}}, nil
	}
	if cached, ok := s.titles.Get(query); ok {
		return cached, nil
	}

	q := catalog.Query{Kind: catalog.ByTitle, Value: query}
	page, err := s.fetch(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	if len(page.Results) == 0 {
		return SearchResult{}, fmt.Errorf("%w: no book matches %q", ErrNotFound, query)
	}

	var result SearchResult
	if s.paginate {
		tree, err := catalog.Paginate(ctx, s.catalog, page, q, s.maxPages)
		if err != nil {
			return SearchResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		result.Pages = tree
	} else {
		result.Books = catalog.SummarizeAll(page.Results)
	}

	s.titles.Put(query, result)
	return result, nil
}

func (s *Service) bookPage(ctx context.Context, bookID int) (*catalog.Page, error) {
	if cached, ok := s.books.Get(bookID); ok {
		return cached, nil
	}
	page, err := s.fetch(ctx, catalog.Query{Kind: catalog.ByID, Value: strconv.Itoa(bookID)})
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, bookID)
	}
	s.books.Put(bookID, page)
	return page, nil
}

// SubmitReview stores a review for a book that exists in the catalog.
func (s *Service) SubmitReview(ctx context.Context, in ReviewInput) (Review, error) {
	page, err := s.fetch(ctx, catalog.Query{Kind: catalog.ByID, Value: strconv.Itoa(in.BookID)})
	if err != nil {
		return Review{}, err
	}
	if len(page.Results) == 0 {
		return Review{}, fmt.Errorf("%w: book %d", ErrNotFound, in.BookID)
	}

	if err := s.validator.Struct(in); err != nil {
		return Review{}, fmt.Errorf("%w: %s", ErrUnprocessable, describe(err))
	}

	rv := Review{
		BookID:     in.BookID,
		Title:      page.Results[0].Title,
		Rating:     in.Rating,
		Review:     in.Review,
		ReviewDate: s.now(),
	}
	if err := s.repo.Insert(ctx, &rv); err != nil {
		return Review{}, err
	}
	return rv, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "Rating":
		return "the book rating must be between 0 and 5"
	case "Review":
		return "the review field cannot be empty"
	}
	return verrs[0].Error()
}

// GetBookWithReviews returns the catalog summary of a book along with its
// rounded average rating and review texts.
func (s *Service) GetBookWithReviews(ctx context.Context, bookID int) (BookWithReviews, error) {
	page, err := s.bookPage(ctx, bookID)
	if err != nil {
		return BookWithReviews{}, err
	}

	out := BookWithReviews{
		BookSummary: catalog.Summarize(page.Results[0]),
		Reviews:     []string{},
	}

	avg, err := s.repo.AverageRating(ctx, bookID)
	if err != nil {
		return BookWithReviews{}, fmt.Errorf("average rating: %w", err)
	}
	if avg == nil {
		return out, nil
	}

	rounded := round2(*avg)
	out.Rating = &rounded
	texts, err := s.repo.ReviewTexts(ctx, bookID)
	if err != nil {
		return BookWithReviews{}, fmt.Errorf("review texts: %w", err)
	}
	if texts != nil {
		out.Reviews = texts
	}
	return out, nil
}

// TopBooks returns the n best-rated books, highest first.
func (s *Service) TopBooks(ctx context.Context, n int) ([]TopBook, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: the number of books must be greater than zero", ErrUnprocessable)
	}

	stats, err := s.repo.TopBooks(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top books: %w", err)
	}

	out := make([]TopBook, 0, len(stats))
	for _, st := range stats {
		out = append(out, TopBook{
			BookID:          st.BookID,
			Title:           st.Title,
			AverageRating:   round2(st.AvgRating),
			NumberOfReviews: st.ReviewCount,
		})
	}
	return out, nil
}

// RatingPerMonth returns one entry per calendar month with reviews.
func (s *Service) RatingPerMonth(ctx context.Context, bookID int) ([]MonthlyReport, error) {
	if bookID <= 0 {
		return nil, fmt.Errorf("%w: the book id must be greater than zero", ErrUnprocessable)
	}

	months, err := s.repo.RatingPerMonth(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("rating per month: %w", err)
	}

	out := make([]MonthlyReport, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyReport{
			BookID:        bookID,
			Title:         m.Title,
			Year:          m.Year,
			Month:         m.Month,
			AverageRating: round2(m.AvgRating),
			MonthCount:    m.MonthCount,
		})
	}
	return out, nil
}

// DeleteMatching removes the first review whose content equals rv. It is a
// no-op when nothing matches.
func (s *Service) DeleteMatching(ctx context.Context, rv Review) error {
	id, err := s.repo.FindMatching(ctx, rv)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
