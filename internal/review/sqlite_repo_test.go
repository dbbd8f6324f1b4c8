package review

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bookreview/internal/platform/sqlite"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = sqlite.Migrate(ctx, db)
	require.NoError(t, err)
	return NewSQLiteRepo(db)
}

func insertReview(t *testing.T, repo Repository, bookID int, title string, rating float64, text string, date time.Time) Review {
	t.Helper()
	rv := Review{BookID: bookID, Title: title, Rating: rating, Review: text, ReviewDate: date}
	require.NoError(t, repo.Insert(context.Background(), &rv))
	return rv
}

func TestSQLiteRepo_InsertAndAverage(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now()

	avg, err := repo.AverageRating(ctx, 84)
	require.NoError(t, err)
	assert.Nil(t, avg, "no reviews yet")

	first := insertReview(t, repo, 84, "Frankenstein", 4.8, "Very good book!", now)
	second := insertReview(t, repo, 84, "Frankenstein", 2.3, "I did not like it", now)
	insertReview(t, repo, 11, "Alice", 1, "Bad book.", now)

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, time.UTC, first.ReviewDate.Location())

	avg, err = repo.AverageRating(ctx, 84)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.55, *avg, 1e-9)

	texts, err := repo.ReviewTexts(ctx, 84)
	require.NoError(t, err)
	assert.Equal(t, []string{"Very good book!", "I did not like it"}, texts)

	texts, err = repo.ReviewTexts(ctx, 12)
	require.NoError(t, err)
	assert.NotNil(t, texts)
	assert.Empty(t, texts)
}

func TestSQLiteRepo_TopBooks(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now()

	insertReview(t, repo, 1, "One", 3, "ok", now)
	insertReview(t, repo, 1, "One", 5, "great", now)
	insertReview(t, repo, 2, "Two", 4.5, "good", now)
	insertReview(t, repo, 3, "Three", 4, "fine", now)
	insertReview(t, repo, 4, "Four", 4, "fine", now)
	insertReview(t, repo, 5, "Five", 1, "bad", now)

	top, err := repo.TopBooks(ctx, 4)
	require.NoError(t, err)
	require.Len(t, top, 4)

	assert.Equal(t, 2, top[0].BookID)
	// ties on 4.0 break by book id
	assert.Equal(t, []int{1, 3, 4}, []int{top[1].BookID, top[2].BookID, top[3].BookID})
	assert.Equal(t, 2, top[1].ReviewCount)
	assert.Equal(t, "One", top[1].Title)

	seen := map[int]bool{}
	for i, s := range top {
		assert.False(t, seen[s.BookID], "book %d listed twice", s.BookID)
		seen[s.BookID] = true
		if i > 0 {
			assert.LessOrEqual(t, s.AvgRating, top[i-1].AvgRating)
		}
	}

	all, err := repo.TopBooks(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteRepo_RatingPerMonth(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	insertReview(t, repo, 84, "Frankenstein", 4, "a", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	insertReview(t, repo, 84, "Frankenstein", 2, "b", time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC))
	insertReview(t, repo, 84, "Frankenstein", 5, "c", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
	// 23:30 at UTC-5 is already February in UTC
	insertReview(t, repo, 84, "Frankenstein", 1, "d", time.Date(2024, 1, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)))
	insertReview(t, repo, 11, "Alice", 3, "e", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	months, err := repo.RatingPerMonth(ctx, 84)
	require.NoError(t, err)
	require.Len(t, months, 3)

	assert.Equal(t, MonthlyRating{Title: "Frankenstein", Year: 2023, Month: 12, AvgRating: 5, MonthCount: 1}, months[0])
	assert.Equal(t, MonthlyRating{Title: "Frankenstein", Year: 2024, Month: 1, AvgRating: 3, MonthCount: 2}, months[1])
	assert.Equal(t, 2, months[2].Month)

	none, err := repo.RatingPerMonth(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteRepo_FindMatchingAndDelete(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 8, 30, 15, 123456789, time.UTC)

	first := insertReview(t, repo, 84, "Frankenstein", 5, "test", date)
	insertReview(t, repo, 84, "Frankenstein", 5, "test", date)

	id, err := repo.FindMatching(ctx, Review{BookID: 84, Title: "Frankenstein", Rating: 5, Review: "test", ReviewDate: date})
	require.NoError(t, err)
	assert.Equal(t, first.ID, id, "lowest id wins")

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), ErrNotFound)

	texts, err := repo.ReviewTexts(ctx, 84)
	require.NoError(t, err)
	assert.Len(t, texts, 1)

	_, err = repo.FindMatching(ctx, Review{BookID: 84, Title: "Frankenstein", Rating: 4, Review: "test", ReviewDate: date})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepo_DeleteMatchingThroughService(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	svc := NewService(nil, repo, Options{})

	rv := insertReview(t, repo, 84, "Frankenstein", 5, "test", time.Now())
	require.NoError(t, svc.DeleteMatching(ctx, rv))
	require.NoError(t, svc.DeleteMatching(ctx, rv), "second delete is a no-op")

	avg, err := repo.AverageRating(ctx, 84)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestSQLiteRepo_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSQLiteRepo(db)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO reviews").WillReturnError(boom)
	err = repo.Insert(ctx, &Review{BookID: 1, Title: "T", Rating: 1, Review: "r"})
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec("DELETE FROM reviews").WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, 9), ErrNotFound)

	mock.ExpectQuery("SELECT AVG\\(rating\\)").WithArgs(1).WillReturnError(boom)
	_, err = repo.AverageRating(ctx, 1)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT book_id").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "title", "avg_rating", "count"}).
			AddRow(1, "T", 4.5, 2).
			RowError(0, boom))
	_, err = repo.TopBooks(ctx, 3)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
