// Package news serves the AI-news widget from a cached Hacker News search feed.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ashureev/leetmentor/internal/config"
	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/store"
)

const (
	hnItemURL       = "https://news.ycombinator.com/item?id="
	defaultSource   = "Hacker News"
	maxFeedBodySize = 4 << 20
)

// ErrNoFeed is returned when the feed is unreachable and nothing is cached.
var ErrNoFeed = errors.New("news feed unavailable")

// Service fetches and caches the news feed.
type Service struct {
	cfg    config.NewsConfig
	repo   store.Repository
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	// mu serializes refreshes so concurrent widgets do not stampede the feed.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a news Service.
func NewService(cfg config.NewsConfig, repo store.Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FeedURL == "" {
		cfg.FeedURL = config.DefaultNewsFeedURL
	}
	s := &Service{
		cfg:    cfg,
		repo:   repo,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the newest items, from cache when it is fresh.
// A failed fetch falls back to a stale cache.
func (s *Service) Latest(ctx context.Context) ([]domain.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.repo.GetNewsCache(ctx, s.cfg.FeedURL)
	if err != nil {
		s.logger.Warn("Failed to read news cache", "error", err)
		cached = nil
	}
	if cached != nil && s.now().Sub(cached.FetchedAt) < s.cfg.CacheTTL {
		return s.limit(cached.Items), nil
	}

	items, err := s.fetch(ctx)
	if err != nil {
		if cached != nil {
			s.logger.Warn("News fetch failed, serving stale cache", "error", err, "fetched_at", cached.FetchedAt)
			return s.limit(cached.Items), nil
		}
		return nil, fmt.Errorf("%w: %w", ErrNoFeed, err)
	}

	cache := &domain.NewsCache{Feed: s.cfg.FeedURL, Items: items, FetchedAt: s.now()}
	if err := s.repo.PutNewsCache(ctx, cache); err != nil {
		s.logger.Warn("Failed to store news cache", "error", err)
	}
	s.logger.Info("News feed refreshed", "items", len(items))
	return s.limit(items), nil
}

func (s *Service) limit(items []domain.NewsItem) []domain.NewsItem {
	if s.cfg.Limit > 0 && len(items) > s.cfg.Limit {
		return items[:s.cfg.Limit]
	}
	return items
}

func (s *Service) fetch(ctx context.Context) ([]domain.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get feed: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return ParseFeed(body)
}

// ParseFeed decodes an Algolia Hacker News search response.
func ParseFeed(body []byte) ([]domain.NewsItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("feed is not valid JSON")
	}
	hits := gjson.GetBytes(body, "hits")
	if !hits.IsArray() {
		return nil, errors.New("feed has no hits array")
	}

	items := make([]domain.NewsItem, 0, len(hits.Array()))
	hits.ForEach(func(_, hit gjson.Result) bool {
		title := strings.TrimSpace(hit.Get("title").String())
		if title == "" {
			title = strings.TrimSpace(hit.Get("story_title").String())
		}
		if title == "" {
			return true
		}

		link := hit.Get("url").String()
		if link == "" {
			link = hit.Get("story_url").String()
		}
		source := sourceOf(link)
		if link == "" {
			link = hnItemURL + hit.Get("objectID").String()
		}

		items = append(items, domain.NewsItem{
			Title:       title,
			URL:         link,
			Source:      source,
			Points:      int(hit.Get("points").Int()),
			PublishedAt: time.Unix(hit.Get("created_at_i").Int(), 0).UTC(),
		})
		return true
	})
	return items, nil
}

func sourceOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return defaultSource
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
