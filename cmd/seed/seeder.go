package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"bookreview/internal/catalog"
	"bookreview/internal/review"

	"github.com/rs/zerolog"
)

const (
	maxBookID  = 100
	maxAgeDays = 1000
)

var sampleReviews = []struct {
	text   string
	rating float64
}{
	{"Very good book!", 4.8},
	{"Nice book.", 4},
	{"I did not like it", 2.3},
	{"It was a please-read book", 4.3},
	{"Interesting one!", 3.7},
	{"Bad book.", 1.8},
	{"I spent two weeks reading the book, and it surprised me every time", 4.2},
	{"Excellent!", 4.5},
	{"Boring book", 2.9},
}

type seeder struct {
	catalog catalog.Source
	repo    review.Repository
	rng     *rand.Rand
	now     time.Time
	logger  zerolog.Logger

	titles map[int]string
}

// run inserts count reviews for random catalog ids. Ids the catalog does not
// know are skipped and do not count.
func (s *seeder) run(ctx context.Context, count int) (int, error) {
	if s.titles == nil {
		s.titles = make(map[int]string)
	}

	inserted := 0
	for attempts := 0; inserted < count && attempts < count*10; attempts++ {
		bookID := 1 + s.rng.Intn(maxBookID)
		title, ok, err := s.title(ctx, bookID)
		if err != nil {
			return inserted, err
		}
		if !ok {
			s.logger.Debug().Int("book_id", bookID).Msg("unknown book, skipping")
			continue
		}

		sample := sampleReviews[s.rng.Intn(len(sampleReviews))]
		age := time.Duration(s.rng.Intn(maxAgeDays*24)) * time.Hour
		rv := review.Review{
			BookID:     bookID,
			Title:      title,
			Rating:     sample.rating,
			Review:     sample.text,
			ReviewDate: s.now.Add(-age),
		}
		if err := s.repo.Insert(ctx, &rv); err != nil {
			return inserted, fmt.Errorf("insert review for book %d: %w", bookID, err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *seeder) title(ctx context.Context, bookID int) (string, bool, error) {
	if title, ok := s.titles[bookID]; ok {
		return title, title != "", nil
	}
	page, err := s.catalog.Fetch(ctx, catalog.Query{Kind: catalog.ByID, Value: strconv.Itoa(bookID)})
	if err != nil {
		return "", false, fmt.Errorf("lookup book %d: %w", bookID, err)
	}
	title := ""
	if page != nil && len(page.Results) > 0 {
		title = page.Results[0].Title
	}
	s.titles[bookID] = title
	return title, title != "", nil
}
