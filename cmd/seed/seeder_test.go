package main

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"bookreview/internal/catalog"
	"bookreview/internal/review"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := catalog.NewMockSource(ctrl)
	repo := review.NewMockRepository(ctrl)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// even ids exist, odd ids do not
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, q catalog.Query) (*catalog.Page, error) {
		id, err := strconv.Atoi(q.Value)
		require.NoError(t, err)
		if id%2 == 1 {
			return &catalog.Page{}, nil
		}
		return &catalog.Page{Count: 1, Results: []catalog.Entry{{ID: id, Title: "Book " + q.Value}}}, nil
	}).AnyTimes()

	var stored []review.Review
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rv *review.Review) error {
		stored = append(stored, *rv)
		return nil
	}).Times(20)

	s := &seeder{catalog: src, repo: repo, rng: rand.New(rand.NewSource(1)), now: now, logger: zerolog.Nop()}
	n, err := s.run(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	for _, rv := range stored {
		assert.Zero(t, rv.BookID%2)
		assert.True(t, rv.BookID >= 1 && rv.BookID <= maxBookID)
		assert.NotEmpty(t, rv.Title)
		assert.False(t, rv.ReviewDate.After(now))
		assert.True(t, rv.ReviewDate.After(now.AddDate(0, 0, -maxAgeDays-1)))
		assert.True(t, rv.Rating >= 0 && rv.Rating <= 5)
	}
}

func TestSeeder_CatalogFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := catalog.NewMockSource(ctrl)
	repo := review.NewMockRepository(ctrl)
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	s := &seeder{catalog: src, repo: repo, rng: rand.New(rand.NewSource(1)), now: time.Now(), logger: zerolog.Nop()}
	n, err := s.run(context.Background(), 5)

	assert.Error(t, err)
	assert.Zero(t, n)
}
