// Package videos searches YouTube for solution walkthroughs.
package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ashureev/leetmentor/internal/domain"
)

const (
	// DefaultEndpoint is the YouTube Data API v3 search endpoint.
	DefaultEndpoint = "https://www.googleapis.com/youtube/v3/search"
	watchURL        = "https://www.youtube.com/watch?v="
	defaultMax      = 5
	maxResultsCap   = 25
)

var (
	// ErrMissingAPIKey is returned when no YouTube API key is configured.
	ErrMissingAPIKey = errors.New("missing YouTube API key")
	// ErrEmptyQuery is returned for blank searches.
	ErrEmptyQuery = errors.New("empty search query")
)

// Client calls the YouTube search API.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// QueryFor builds the search query for a problem.
func QueryFor(info domain.ProblemInfo) string {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = domain.DefaultProblemTitle
	}
	parts := []string{title, "leetcode"}
	if info.Difficulty.Valid() && info.Difficulty != domain.DifficultyUnknown {
		parts = append(parts, strings.ToLower(string(info.Difficulty)))
	}
	parts = append(parts, "solution explained")
	return strings.Join(parts, " ")
}

// Search returns up to max videos for query in relevance order.
func (c *Client) Search(ctx context.Context, query string, max int) ([]domain.Video, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if max <= 0 {
		max = defaultMax
	}
	max = min(max, maxResultsCap)

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(max))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("search videos: status %d: %s", resp.StatusCode, msg)
	}
	return ParseSearch(body), nil
}

// ParseSearch decodes a YouTube search response. Non-video results are skipped.
func ParseSearch(body []byte) []domain.Video {
	var out []domain.Video
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id.videoId").String()
		if id == "" {
			return true
		}
		snippet := item.Get("snippet")
		published, _ := time.Parse(time.RFC3339, snippet.Get("publishedAt").String())

		thumb := snippet.Get("thumbnails.medium.url").String()
		if thumb == "" {
			thumb = snippet.Get("thumbnails.default.url").String()
		}
		out = append(out, domain.Video{
			ID:          id,
			Title:       snippet.Get("title").String(),
			Channel:     snippet.Get("channelTitle").String(),
			URL:         watchURL + id,
			Thumbnail:   thumb,
			PublishedAt: published,
		})
		return true
	})
	if out == nil {
		out = []domain.Video{}
	}
	return out
}
