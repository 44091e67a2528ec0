package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/session-auth/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	client, err := NewClient(dbPath, DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "app-tasks.db"), TasksDBPath(filepath.Join("data", "app.db")))
	assert.Equal(t, "session-auth-tasks.db", TasksDBPath("./session-auth.db"))
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type fakeCleaner struct {
	mu        sync.Mutex
	retention []time.Duration
	err       error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = append(f.retention, retention)
	return 3, f.err
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	t.Run("uses task retention", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		process := CleanupAuditEventsProcessor(cleaner, zerolog.Nop())

		require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
		assert.Equal(t, []time.Duration{7 * 24 * time.Hour}, cleaner.retention)
	})

	t.Run("defaults retention", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		process := CleanupAuditEventsProcessor(cleaner, zerolog.Nop())

		require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
		assert.Equal(t, []time.Duration{30 * 24 * time.Hour}, cleaner.retention)
	})

	t.Run("propagates errors", func(t *testing.T) {
		cleaner := &fakeCleaner{err: errors.New("disk full")}
		process := CleanupAuditEventsProcessor(cleaner, zerolog.Nop())

		err := process(context.Background(), CleanupAuditEventsTask{RetentionDays: 1})
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("requires a cleaner", func(t *testing.T) {
		process := CleanupAuditEventsProcessor(nil, zerolog.Nop())
		assert.Error(t, process(context.Background(), CleanupAuditEventsTask{}))
	})
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	cfg := CleanupAuditEventsTask{}.Config()

	assert.Equal(t, "cleanup_audit_events", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestCleanupAuditEventsTaskRunsThroughQueue(t *testing.T) {
	client := newTestClient(t)

	done := make(chan time.Duration, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task CleanupAuditEventsTask) error {
		done <- task.Retention()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		client.Stop(stopCtx)
	}()

	ids, err := client.Add(CleanupAuditEventsTask{RetentionDays: 2}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case retention := <-done:
		assert.Equal(t, 48*time.Hour, retention)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4})
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)

	assert.Equal(t, DefaultConfig(), ConfigFrom(config.Tasks{}))
}

func TestPairsPadsOddParams(t *testing.T) {
	assert.Len(t, pairs([]any{"a", 1, "b"}), 4)
	assert.Len(t, pairs([]any{"a", 1}), 2)
}
