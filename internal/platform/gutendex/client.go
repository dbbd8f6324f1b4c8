package gutendex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookreview/internal/catalog"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://gutendex.com"

// Client queries the Gutendex books endpoint. Failed calls are not retried.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(baseURL, userAgent string, rps int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Every(time.Second / time.Duration(rps))
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		baseURL:   strings.TrimRight(baseURL, "/"),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Fetch implements catalog.Source.
func (c *Client) Fetch(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	u, err := c.booksURL(q)
	if err != nil {
		return nil, err
	}

	var page catalog.Page
	if err := c.get(ctx, u, &page); err != nil {
		return nil, fmt.Errorf("gutendex %s %q: %w", q.Kind, q.Value, err)
	}
	return &page, nil
}

func (c *Client) booksURL(q catalog.Query) (string, error) {
	params := url.Values{}
	switch q.Kind {
	case catalog.ByID:
		params.Set("ids", q.Value)
	case catalog.ByTitle:
		params.Set("search", q.Value)
	default:
		return "", fmt.Errorf("unsupported query kind %q", q.Kind)
	}
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	return c.baseURL + "/books/?" + params.Encode(), nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
