// Package search wraps the Brave Search API as the snippet source used to
// enrich specialist responses. The client never fails: a missing key, a
// request error, or an empty result set all yield a single placeholder
// entry, so callers can format results without nil checks.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deskd-io/deskd/pkg/protocol"
)

const (
	defaultBaseURL    = "https://api.search.brave.com/res/v1/web/search"
	defaultNumResults = 3
	searchTimeout     = 10 * time.Second
)

// Searcher is the lookup capability consumed by responders.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) []protocol.SearchResult
}

// Client queries the Brave Search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New creates a search client. An empty apiKey is allowed; searches then
// return the unavailable placeholder.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: searchTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to numResults web results for query. It never returns
// an empty slice.
func (c *Client) Search(ctx context.Context, query string, numResults int) []protocol.SearchResult {
	if numResults <= 0 {
		numResults = defaultNumResults
	}
	if c.apiKey == "" {
		return []protocol.SearchResult{{
			Title:   "Search unavailable",
			Snippet: "search API key not configured",
		}}
	}

	results, err := c.search(ctx, query, numResults)
	if err != nil {
		return []protocol.SearchResult{{
			Title:   "Search error",
			Snippet: fmt.Sprintf("Error: %v", err),
		}}
	}
	if len(results) == 0 {
		return []protocol.SearchResult{{
			Title:   "No results",
			Snippet: "No search results found",
		}}
	}
	return results
}

func (c *Client) search(ctx context.Context, query string, numResults int) ([]protocol.SearchResult, error) {
	reqURL := fmt.Sprintf("%s?q=%s&count=%d", c.baseURL, url.QueryEscape(query), numResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search: API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: parse response: %w", err)
	}

	var results []protocol.SearchResult
	for _, r := range parsed.Web.Results {
		results = append(results, protocol.SearchResult{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Description,
		})
		if len(results) == numResults {
			break
		}
	}
	return results, nil
}

// FormatContext renders results as bullet lines for prompt inclusion.
func FormatContext(results []protocol.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}
