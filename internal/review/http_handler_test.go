package review

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookreview/internal/catalog"
	"bookreview/internal/httpx"
	"bookreview/internal/platform/gutendex"
	"bookreview/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	handler  http.Handler
	repo     *SQLiteRepo
	gutendex *testutil.FakeGutendex
}

func newTestAPI(t *testing.T) *testAPI {
	fake := testutil.NewFakeGutendex(t, testutil.Frankenstein, testutil.PrideAndPrejudice)
	repo := setupSQLiteRepo(t)
	client := gutendex.NewClient(fake.URL(), "bookreview-test", 0, 2*time.Second)
	svc := NewService(client, repo, Options{})

	mux := http.NewServeMux()
	NewHTTPHandler(svc).Register(mux)
	return &testAPI{
		handler:  httpx.Chain(mux, httpx.RequestIDMiddleware(zerolog.Nop()), httpx.RecoveryMiddleware),
		repo:     repo,
		gutendex: fake,
	}
}

func (a *testAPI) do(r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

func TestHTTPHandler_GetBook(t *testing.T) {
	api := newTestAPI(t)

	t.Run("found", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book?request=Frankenstein", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		books, ok := resp.Body["books"].([]interface{})
		require.True(t, ok)
		require.Len(t, books, 1)
		assert.Equal(t, float64(84), books[0].(map[string]interface{})["id"])
	})

	t.Run("second lookup is cached", func(t *testing.T) {
		before := api.gutendex.Calls()
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book?request=Frankenstein", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, before, api.gutendex.Calls())
	})

	t.Run("not found", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book?request=THIS_SHOULD_NOT_BE_FOUND", nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "NOT_FOUND", testutil.ErrorCode(resp.Body))
	})

	t.Run("upstream failure", func(t *testing.T) {
		api.gutendex.FailWith(http.StatusServiceUnavailable)
		defer api.gutendex.FailWith(0)

		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book?request=Pride", nil))

		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.Equal(t, "UPSTREAM_FAILURE", testutil.ErrorCode(resp.Body))
	})

	t.Run("wrong method", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodPost, "/get_book", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	})
}

func TestHTTPHandler_PostReview(t *testing.T) {
	api := newTestAPI(t)

	t.Run("created", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodPost, "/post_review", map[string]interface{}{
			"book_id": 84, "rating": 5, "review": "test",
		}))

		require.Equal(t, http.StatusCreated, resp.Code)
		stored, ok := resp.Body["Review"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, testutil.Frankenstein.Title, stored["title"])
		assert.Equal(t, float64(84), stored["book_id"])
		assert.NotZero(t, stored["id"])
	})

	t.Run("unknown book", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodPost, "/post_review", map[string]interface{}{
			"book_id": -3, "rating": 3, "review": "hmm",
		}))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	tests := []struct {
		name string
		body map[string]interface{}
		code string
	}{
		{"rating too high", map[string]interface{}{"book_id": 84, "rating": 5.5, "review": "x"}, "UNPROCESSABLE_ENTITY"},
		{"rating negative", map[string]interface{}{"book_id": 84, "rating": -1, "review": "x"}, "UNPROCESSABLE_ENTITY"},
		{"empty review", map[string]interface{}{"book_id": 84, "rating": 3, "review": ""}, "UNPROCESSABLE_ENTITY"},
		{"missing review", map[string]interface{}{"book_id": 84, "rating": 3}, "VALIDATION_ERROR"},
		{"missing book id", map[string]interface{}{"rating": 3, "review": "x"}, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(testutil.NewRequest(http.MethodPost, "/post_review", tt.body))

			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
			assert.Equal(t, tt.code, testutil.ErrorCode(resp.Body))
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		resp := api.do(testutil.NewRawRequest(http.MethodPost, "/post_review", `{"book_id": 84,`))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "BAD_REQUEST", testutil.ErrorCode(resp.Body))
	})
}

func TestHTTPHandler_GetReviews(t *testing.T) {
	api := newTestAPI(t)

	t.Run("no reviews", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_reviews?book_id=1342", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Nil(t, resp.Body["rating"])
		assert.Equal(t, []interface{}{}, resp.Body["reviews"])
		assert.Equal(t, "Pride and Prejudice", resp.Body["title"])
	})

	t.Run("with reviews", func(t *testing.T) {
		insertReview(t, api.repo, 84, testutil.Frankenstein.Title, 4.8, "Very good book!", time.Now())
		insertReview(t, api.repo, 84, testutil.Frankenstein.Title, 4, "Nice book.", time.Now())
		insertReview(t, api.repo, 84, testutil.Frankenstein.Title, 2.3, "I did not like it", time.Now())

		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_reviews?book_id=84", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 3.7, resp.Body["rating"])
		assert.Equal(t, []interface{}{"Very good book!", "Nice book.", "I did not like it"}, resp.Body["reviews"])
		assert.Len(t, resp.Body["authors"], 1)
	})

	t.Run("unknown book", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_reviews?book_id=-3", nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("not an integer", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_reviews?book_id=abc", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestHTTPHandler_Reports(t *testing.T) {
	api := newTestAPI(t)

	insertReview(t, api.repo, 84, "Frankenstein", 5, "a", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	insertReview(t, api.repo, 84, "Frankenstein", 4, "b", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	insertReview(t, api.repo, 1342, "Pride and Prejudice", 3, "c", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	t.Run("best books", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_n_best_books?n_books=1", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		books := resp.Body["books"].([]interface{})
		require.Len(t, books, 1)
		best := books[0].(map[string]interface{})
		assert.Equal(t, float64(84), best["BookId"])
		assert.Equal(t, 4.5, best["AverageRating"])
		assert.Equal(t, float64(2), best["NumberOfReviews"])
	})

	t.Run("per month", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book_rating_per_month?book_id=84", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		months := resp.Body["books"].([]interface{})
		require.Len(t, months, 2)
		first := months[0].(map[string]interface{})
		assert.Equal(t, float64(1), first["Month"])
		assert.Equal(t, float64(2024), first["Year"])
	})

	t.Run("per month without reviews", func(t *testing.T) {
		resp := api.do(testutil.NewRequest(http.MethodGet, "/get_book_rating_per_month?book_id=7", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []interface{}{}, resp.Body["books"])
	})

	for _, path := range []string{
		"/get_n_best_books?n_books=-5",
		"/get_n_best_books?n_books=0",
		"/get_n_best_books",
		"/get_book_rating_per_month?book_id=-5",
	} {
		t.Run(path, func(t *testing.T) {
			resp := api.do(testutil.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		})
	}
}

func TestHTTPHandler_InternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := catalog.NewMockSource(ctrl)
	repo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(src, repo, Options{}))

	repo.EXPECT().TopBooks(gomock.Any(), 3).Return(nil, context.DeadlineExceeded)

	w := httptest.NewRecorder()
	handler.GetBestBooks(w, httptest.NewRequest(http.MethodGet, "/get_n_best_books?n_books=3", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
