package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"bookreview/internal/catalog"
)

// Frankenstein is Gutendex book 84, used as the canonical known book.
var Frankenstein = catalog.Entry{
	ID:    84,
	Title: "Frankenstein; Or, The Modern Prometheus",
	Authors: []catalog.Person{
		{Name: "Shelley, Mary Wollstonecraft", BirthYear: intPtr(1797), DeathYear: intPtr(1851)},
	},
	Languages:     []string{"en"},
	DownloadCount: 91316,
}

// PrideAndPrejudice is Gutendex book 1342.
var PrideAndPrejudice = catalog.Entry{
	ID:    1342,
	Title: "Pride and Prejudice",
	Authors: []catalog.Person{
		{Name: "Austen, Jane", BirthYear: intPtr(1775), DeathYear: intPtr(1817)},
	},
	Languages:     []string{"en"},
	DownloadCount: 71549,
}

func intPtr(i int) *int { return &i }

// FakeGutendex serves /books/ from an in-memory list of entries.
// Results are split into pages of pageSize entries.
type FakeGutendex struct {
	Server   *httptest.Server
	entries  []catalog.Entry
	pageSize int

	calls    atomic.Int64
	failWith atomic.Int64
}

// NewFakeGutendex starts a fake server that is closed when the test ends.
func NewFakeGutendex(t testing.TB, entries ...catalog.Entry) *FakeGutendex {
	return NewPagedFakeGutendex(t, 32, entries...)
}

func NewPagedFakeGutendex(t testing.TB, pageSize int, entries ...catalog.Entry) *FakeGutendex {
	t.Helper()
	f := &FakeGutendex{entries: entries, pageSize: pageSize}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// FailWith makes every following request answer with status. Zero restores
// normal behaviour.
func (f *FakeGutendex) FailWith(status int) {
	f.failWith.Store(int64(status))
}

func (f *FakeGutendex) URL() string {
	return f.Server.URL
}

// Calls reports how many requests the server has received.
func (f *FakeGutendex) Calls() int {
	return int(f.calls.Load())
}

func (f *FakeGutendex) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	if status := f.failWith.Load(); status != 0 {
		w.WriteHeader(int(status))
		return
	}
	if r.URL.Path != "/books/" {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	var matches []catalog.Entry
	switch {
	case query.Has("ids"):
		for _, raw := range strings.Split(query.Get("ids"), ",") {
			id, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			for _, e := range f.entries {
				if e.ID == id {
					matches = append(matches, e)
				}
			}
		}
	case query.Has("search"):
		needle := strings.ToLower(query.Get("search"))
		for _, e := range f.entries {
			if strings.Contains(strings.ToLower(e.Title), needle) {
				matches = append(matches, e)
			}
		}
	default:
		matches = f.entries
	}

	page := 1
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	start := (page - 1) * f.pageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + f.pageSize
	if end > len(matches) {
		end = len(matches)
	}

	resp := map[string]interface{}{
		"count":    len(matches),
		"next":     nil,
		"previous": nil,
		"results":  append([]catalog.Entry{}, matches[start:end]...),
	}
	if end < len(matches) {
		next := query
		next.Set("page", strconv.Itoa(page+1))
		resp["next"] = fmt.Sprintf("%s/books/?%s", f.Server.URL, next.Encode())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
