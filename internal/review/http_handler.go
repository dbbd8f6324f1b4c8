package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookreview/internal/httpx"

	"github.com/rs/zerolog"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Register mounts the review routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /get_book", h.GetBook)
	mux.HandleFunc("POST /post_review", h.PostReview)
	mux.HandleFunc("GET /get_reviews", h.GetReviews)
	mux.HandleFunc("GET /get_n_best_books", h.GetBestBooks)
	mux.HandleFunc("GET /get_book_rating_per_month", h.GetRatingPerMonth)
}

type postReviewRequest struct {
	BookID *int     `json:"book_id" validate:"required"`
	Rating *float64 `json:"rating" validate:"required"`
	Review *string  `json:"review" validate:"required"`
}

type reviewCreatedResponse struct {
	Review Review `json:"Review"`
}

type topBooksResponse struct {
	Books []TopBook `json:"books"`
}

type monthlyReportResponse struct {
	Books []MonthlyReport `json:"books"`
}

// GetBook handles GET /get_book
// @Summary Search books by title
// @Description Look a title up in the Gutendex catalog
// @Tags books
// @Produce json
// @Param request query string true "Title to search for"
// @Success 200 {object} SearchResult
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /get_book [get]
func (h *HTTPHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SearchBooks(r.Context(), r.URL.Query().Get("request"))
	if err != nil {
		h.writeError(w, r, err, "Book not found")
		return
	}
	httpx.JSONOK(w, result)
}

// PostReview handles POST /post_review
// @Summary Submit a review
// @Description Store a rating and review text for a catalog book
// @Tags reviews
// @Accept json
// @Produce json
// @Param body body postReviewRequest true "Review"
// @Success 201 {object} reviewCreatedResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /post_review [post]
func (h *HTTPHandler) PostReview(w http.ResponseWriter, r *http.Request) {
	var req postReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	rv, err := h.service.SubmitReview(r.Context(), ReviewInput{
		BookID: *req.BookID,
		Rating: *req.Rating,
		Review: *req.Review,
	})
	if err != nil {
		h.writeError(w, r, err, "Book not found")
		return
	}
	httpx.JSONCreated(w, reviewCreatedResponse{Review: rv})
}

// GetReviews handles GET /get_reviews
// @Summary Get a book with its reviews
// @Tags reviews
// @Produce json
// @Param book_id query int true "Gutendex book id"
// @Success 200 {object} BookWithReviews
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /get_reviews [get]
func (h *HTTPHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	bookID, ok := queryInt(w, r, "book_id")
	if !ok {
		return
	}

	book, err := h.service.GetBookWithReviews(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err, "Book not found")
		return
	}
	httpx.JSONOK(w, book)
}

// GetBestBooks handles GET /get_n_best_books
// @Summary Best rated books
// @Tags reports
// @Produce json
// @Param n_books query int true "Number of books"
// @Success 200 {object} topBooksResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /get_n_best_books [get]
func (h *HTTPHandler) GetBestBooks(w http.ResponseWriter, r *http.Request) {
	n, ok := queryInt(w, r, "n_books")
	if !ok {
		return
	}

	books, err := h.service.TopBooks(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	httpx.JSONOK(w, topBooksResponse{Books: books})
}

// GetRatingPerMonth handles GET /get_book_rating_per_month
// @Summary Monthly average rating of a book
// @Tags reports
// @Produce json
// @Param book_id query int true "Gutendex book id"
// @Success 200 {object} monthlyReportResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /get_book_rating_per_month [get]
func (h *HTTPHandler) GetRatingPerMonth(w http.ResponseWriter, r *http.Request) {
	bookID, ok := queryInt(w, r, "book_id")
	if !ok {
		return
	}

	months, err := h.service.RatingPerMonth(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	httpx.JSONOK(w, monthlyReportResponse{Books: months})
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid query parameter", []httpx.ErrorDetail{
			{Field: name, Message: name + " must be an integer"},
		})
		return 0, false
	}
	return v, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", notFoundMsg, nil)
	case errors.Is(err, ErrUnprocessable):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", unwrapMessage(err), nil)
	case errors.Is(err, ErrUpstream):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("catalog request failed")
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_FAILURE", "Book catalog unavailable", nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// unwrapMessage drops the sentinel prefix from a wrapped validation error.
func unwrapMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrUnprocessable.Error()+": ")
}
