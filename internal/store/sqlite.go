package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashureev/leetmentor/internal/domain"
	"github.com/ashureev/leetmentor/internal/shared"
)

const (
	maxWriteRetries = 3
	baseRetryDelay  = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS session_summaries (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tab_id TEXT NOT NULL,
		problem_title TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_user ON session_summaries(user_id, ended_at);
	CREATE INDEX IF NOT EXISTS idx_summaries_ended ON session_summaries(ended_at);

	CREATE TABLE IF NOT EXISTS news_cache (
		feed TEXT PRIMARY KEY,
		items_json TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// SaveSummary stores a completed session summary.
// Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary domain.StoredSummary) error {
	data, err := json.Marshal(summary.Summary)
	if err != nil {
		return fmt.Errorf("marshal session summary: %w", err)
	}

	query := `
	INSERT INTO session_summaries (session_id, user_id, tab_id, problem_title, summary_json, ended_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		summary_json = excluded.summary_json,
		ended_at = excluded.ended_at`

	return withRetry(ctx, "save summary", func() error {
		_, err := s.db.ExecContext(ctx, query,
			summary.Summary.ID, summary.UserID, summary.TabID,
			summary.Summary.ProblemTitle, string(data), summary.Summary.EndedAt.Unix(),
		)
		return err
	})
}

// ListSummaries returns a user's most recent summaries, newest first.
func (s *SQLiteStore) ListSummaries(ctx context.Context, userID string, limit int) ([]domain.StoredSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT user_id, tab_id, summary_json
		FROM session_summaries WHERE user_id = ?
		ORDER BY ended_at DESC, session_id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close summaries rows", "error", closeErr)
		}
	}()

	summaries := []domain.StoredSummary{}
	for rows.Next() {
		var stored domain.StoredSummary
		var data string
		if err := rows.Scan(&stored.UserID, &stored.TabID, &data); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &stored.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		summaries = append(summaries, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}

	return summaries, nil
}

// PruneSummaries removes summaries older than retention.
func (s *SQLiteStore) PruneSummaries(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()
	var removed int64
	err := withRetry(ctx, "prune summaries", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM session_summaries WHERE ended_at < ?`, threshold)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	return removed, err
}

// GetNewsCache returns the cached items of feed, or nil if there are none.
func (s *SQLiteStore) GetNewsCache(ctx context.Context, feed string) (*domain.NewsCache, error) {
	row := s.db.QueryRowContext(ctx, `SELECT items_json, fetched_at FROM news_cache WHERE feed = ?`, feed)

	var data string
	var fetchedAt int64
	err := row.Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan news cache: %w", err)
	}

	cache := &domain.NewsCache{Feed: feed, FetchedAt: time.Unix(fetchedAt, 0)}
	if err := json.Unmarshal([]byte(data), &cache.Items); err != nil {
		return nil, fmt.Errorf("decode news cache: %w", err)
	}
	return cache, nil
}

// PutNewsCache replaces the cached items of a feed.
func (s *SQLiteStore) PutNewsCache(ctx context.Context, cache *domain.NewsCache) error {
	data, err := json.Marshal(cache.Items)
	if err != nil {
		return fmt.Errorf("marshal news items: %w", err)
	}

	query := `
	INSERT INTO news_cache (feed, items_json, fetched_at) VALUES (?, ?, ?)
	ON CONFLICT(feed) DO UPDATE SET
		items_json = excluded.items_json,
		fetched_at = excluded.fetched_at`

	return withRetry(ctx, "put news cache", func() error {
		_, err := s.db.ExecContext(ctx, query, cache.Feed, string(data), cache.FetchedAt.Unix())
		return err
	})
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withRetry runs op, retrying SQLite lock conflicts with exponential backoff: 100ms, 200ms.
func withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < maxWriteRetries; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxWriteRetries-1 {
			break
		}

		delay := baseRetryDelay * time.Duration(1<<i)
		slog.Debug("SQLite write conflict, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
