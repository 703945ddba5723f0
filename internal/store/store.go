// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/leetmentor/internal/domain"
)

// Repository defines the interface for persisting users, session summaries and cached feeds.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveSummary stores the summary of a completed interview session.
	SaveSummary(ctx context.Context, summary domain.StoredSummary) error

	// ListSummaries returns a user's most recent session summaries, newest first.
	ListSummaries(ctx context.Context, userID string, limit int) ([]domain.StoredSummary, error)

	// PruneSummaries removes summaries of sessions that ended before now-retention.
	PruneSummaries(ctx context.Context, retention time.Duration) (int64, error)

	// GetNewsCache returns the cached items of a feed, or nil if none are cached.
	GetNewsCache(ctx context.Context, feed string) (*domain.NewsCache, error)

	// PutNewsCache replaces the cached items of a feed.
	PutNewsCache(ctx context.Context, cache *domain.NewsCache) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
