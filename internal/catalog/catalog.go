package catalog

import (
	"context"
	"errors"
)

// Kind selects how the upstream catalog is queried.
type Kind string

const (
	ByID    Kind = "by-id"
	ByTitle Kind = "by-title"
)

// ErrBadContinuation is returned when a next-page link cannot be followed.
var ErrBadContinuation = errors.New("malformed continuation link")

// Query identifies one page of an upstream lookup. Page 0 and 1 both mean
// the first page.
type Query struct {
	Kind  Kind
	Value string
	Page  int
}

// Person matches the Gutendex author/translator record.
type Person struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

// Entry is a single catalog record as delivered upstream.
type Entry struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Authors       []Person `json:"authors"`
	Languages     []string `json:"languages"`
	DownloadCount int      `json:"download_count"`
}

// Page is one page of upstream results.
type Page struct {
	Count    int     `json:"count"`
	Next     string  `json:"next"`
	Previous string  `json:"previous"`
	Results  []Entry `json:"results"`
}

// Source is the upstream catalog capability.
type Source interface {
	Fetch(ctx context.Context, q Query) (*Page, error)
}

// BookSummary is the shaped view of an Entry exposed by the API.
type BookSummary struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Authors       []Person `json:"authors"`
	Languages     []string `json:"languages"`
	DownloadCount int      `json:"download_count"`
}

// BookList wraps summaries in the {"books": [...]} payload.
type BookList struct {
	Books []BookSummary `json:"books"`
}

func Summarize(e Entry) BookSummary {
	authors := e.Authors
	if authors == nil {
		authors = []Person{}
	}
	languages := e.Languages
	if languages == nil {
		languages = []string{}
	}
	return BookSummary{
		ID:            e.ID,
		Title:         e.Title,
		Authors:       authors,
		Languages:     languages,
		DownloadCount: e.DownloadCount,
	}
}

// SummarizeAll never returns nil so the payload encodes as an empty list.
func SummarizeAll(entries []Entry) []BookSummary {
	out := make([]BookSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, Summarize(e))
	}
	return out
}
