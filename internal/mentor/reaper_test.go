package mentor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/leetmentor/internal/config"
)

func TestReapCompletesIdleAndPrunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, testKey, StartRequest{Problem: twoSum()})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	reap(ctx, f.svc, f.repo, config.SessionConfig{IdleTTL: 30 * time.Minute, SummaryRetention: time.Hour})

	assert.False(t, f.svc.Status(testKey).Active)
	assert.Len(t, f.repo.saved(), 1)
	assert.Equal(t, int64(1), f.repo.pruned)
}

func TestReapSkipsDisabledSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, testKey, StartRequest{Problem: twoSum()})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	reap(ctx, f.svc, f.repo, config.SessionConfig{})

	assert.True(t, f.svc.Status(testKey).Active)
	assert.Zero(t, f.repo.pruned)
}

func TestStartReaperStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	StartReaper(ctx, f.svc, f.repo, config.SessionConfig{ReaperInterval: time.Hour})
	cancel()
}
