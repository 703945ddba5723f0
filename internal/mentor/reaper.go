package mentor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/leetmentor/internal/config"
	"github.com/ashureev/leetmentor/internal/shared"
	"github.com/ashureev/leetmentor/internal/store"
)

const defaultReaperInterval = 5 * time.Minute

// pruneSummariesWithRetry prunes old summaries with exponential backoff
// to handle SQLITE_BUSY errors.
func pruneSummariesWithRetry(ctx context.Context, repo store.Repository, retention time.Duration) (int64, error) {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		n, err := repo.PruneSummaries(ctx, retention)
		if err == nil {
			return n, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return 0, fmt.Errorf("prune summaries after %d attempts: %w", i+1, err)
		}

		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("Reaper: database locked during prune, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, nil
}

// StartReaper runs a background goroutine that periodically completes idle
// interviews and prunes expired summaries.
func StartReaper(ctx context.Context, svc *Service, repo store.Repository, cfg config.SessionConfig) {
	interval := cfg.ReaperInterval
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "idle_ttl", cfg.IdleTTL, "retention", cfg.SummaryRetention)

		for {
			select {
			case <-ticker.C:
				reap(ctx, svc, repo, cfg)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func reap(ctx context.Context, svc *Service, repo store.Repository, cfg config.SessionConfig) {
	if cfg.IdleTTL > 0 {
		if n := svc.ReapIdle(ctx, cfg.IdleTTL); n > 0 {
			slog.Info("Reaper completed idle interviews", "count", n)
		}
	}

	if cfg.SummaryRetention <= 0 {
		return
	}
	pruned, err := pruneSummariesWithRetry(ctx, repo, cfg.SummaryRetention)
	if err != nil {
		// Context cancellation during shutdown is not a failure.
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Reaper failed to prune summaries", "error", err)
		return
	}
	if pruned > 0 {
		slog.Info("Reaper pruned old summaries", "count", pruned)
	}
}
