package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeRunner) RunAuditCleanup(_ context.Context, retentionDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, retentionDays)
	return f.err
}

type fakeCleaner struct {
	retention time.Duration
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 0, nil
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeRunner{}, "0 3 * * *", 30, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())

	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
	s.Stop()
}

func TestAuditCleanupScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeRunner{}, "*/5 * * * *", 30, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestAuditCleanupScheduler_Disabled(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeRunner{}, "", 30, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeRunner{}, "every day", 30, zerolog.Nop())

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_Run(t *testing.T) {
	runner := &fakeRunner{}
	s := NewAuditCleanupScheduler(runner, "0 3 * * *", 14, zerolog.Nop())

	s.run(context.Background())
	assert.Equal(t, []int{14}, runner.calls)

	// Failures are logged, not returned
	runner.err = errors.New("queue closed")
	s.run(context.Background())
	assert.Equal(t, []int{14, 14}, runner.calls)
}

func TestDirectRunner(t *testing.T) {
	cleaner := &fakeCleaner{}
	require.NoError(t, DirectRunner{Cleaner: cleaner}.RunAuditCleanup(context.Background(), 3))
	assert.Equal(t, 72*time.Hour, cleaner.retention)
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 3 * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * 1-5"))
	assert.Error(t, ValidateCronSchedule("0 0 3 * * *"), "seconds field is not accepted")
	assert.Error(t, ValidateCronSchedule(""))
}
