package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultMaxDepth bounds how many continuation links Paginate follows.
const DefaultMaxDepth = 5

// PaginatedResult mirrors the upstream previous/results/next shape with the
// neighbouring pages inlined instead of linked by URL.
type PaginatedResult struct {
	Previous *PaginatedResult `json:"previous"`
	Results  BookList         `json:"results"`
	Next     *PaginatedResult `json:"next"`
}

// Paginate follows continuation links starting from first, fetching at most
// maxDepth further pages with the same kind and value as q.
//
// Each node's Previous is a snapshot of the prior node taken before its Next
// was linked, so the tree stays acyclic.
func Paginate(ctx context.Context, src Source, first *Page, q Query, maxDepth int) (*PaginatedResult, error) {
	var nodes []*PaginatedResult
	page := first

	for depth := 0; ; depth++ {
		node := &PaginatedResult{
			Results: BookList{Books: SummarizeAll(page.Results)},
		}
		if len(nodes) > 0 {
			prev := *nodes[len(nodes)-1]
			node.Previous = &prev
		}
		nodes = append(nodes, node)

		if page.Next == "" || depth >= maxDepth {
			break
		}

		next, err := NextPage(page.Next)
		if err != nil {
			return nil, err
		}
		page, err = src.Fetch(ctx, Query{Kind: q.Kind, Value: q.Value, Page: next})
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", next, err)
		}
	}

	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Next = nodes[i+1]
	}
	return nodes[0], nil
}

// NextPage extracts the page number from a continuation URL such as
// https://gutendex.com/books/?page=2&search=frankenstein.
func NextPage(link string) (int, error) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadContinuation, err)
	}
	raw := u.Query().Get("page")
	if raw == "" {
		return 0, fmt.Errorf("%w: no page parameter in %q", ErrBadContinuation, link)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid page %q", ErrBadContinuation, raw)
	}
	return n, nil
}
