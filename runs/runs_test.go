package runs

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test run store
func createTestRunStore(t *testing.T) *RunStore {
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: start a short simulated task
func startTask(t *testing.T, steps int, interval time.Duration) *collector.Task {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	runner := collector.NewRunner(collector.Simulated(steps, interval), collector.WithLogger(log))

	cfg, err := taskconfig.Validate(taskconfig.RawInput{
		RangeMode:     "custom",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-05",
		SharedBike:    true,
		ExtraKeywords: "电动车",
	}, time.Now())
	require.NoError(t, err)

	task, err := runner.Start(cfg)
	require.NoError(t, err)
	return task
}

// TestTrack_RecordsCompletion verifies a finished task lands in history
func TestTrack_RecordsCompletion(t *testing.T) {
	store := createTestRunStore(t)
	task := startTask(t, 3, time.Millisecond)

	require.NoError(t, store.Track(context.Background(), task))

	run, err := store.Get(task.ID())
	require.NoError(t, err)
	assert.Equal(t, collector.StateCompleted, run.State)
	assert.Equal(t, 100, run.Progress)
	assert.Empty(t, run.Reason)
	require.NotNil(t, run.FinishedAt)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.Equal(t, []string{"共享单车", "电动车"}, run.Config.Terms())
	assert.Equal(t, taskconfig.RangeCustom, run.Config.RangeMode)
}

// TestTrack_RecordsCancel verifies a cancelled task is recorded as such
func TestTrack_RecordsCancel(t *testing.T) {
	store := createTestRunStore(t)
	task := startTask(t, 10, time.Hour)

	done := make(chan error, 1)
	go func() { done <- store.Track(context.Background(), task) }()

	require.Eventually(t, func() bool {
		_, err := store.Get(task.ID())
		return err == nil
	}, 5*time.Second, time.Millisecond)
	task.Cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("track did not return")
	}

	run, err := store.Get(task.ID())
	require.NoError(t, err)
	assert.Equal(t, collector.StateCancelled, run.State)
	assert.Equal(t, 0, run.Progress)
}

// TestTrack_ContextEnds verifies Track stops with the context
func TestTrack_ContextEnds(t *testing.T) {
	store := createTestRunStore(t)
	task := startTask(t, 10, time.Hour)
	t.Cleanup(func() { task.Cancel() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := store.Track(ctx, task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	run, err := store.Get(task.ID())
	require.NoError(t, err)
	assert.Equal(t, collector.StateRunning, run.State)
	assert.Nil(t, run.FinishedAt)
}

// TestRecord_Failure verifies failure reasons are stored
func TestRecord_Failure(t *testing.T) {
	store := createTestRunStore(t)
	task := startTask(t, 10, time.Hour)
	t.Cleanup(func() { task.Cancel() })
	require.NoError(t, store.Begin(task))

	ev := collector.StatusEvent{
		TaskID:   task.ID(),
		State:    collector.StateFailed,
		Progress: 30,
		Message:  "collection failed: disk full",
		Reason:   "disk full",
		At:       time.Now(),
	}
	require.NoError(t, store.Record(ev))

	run, err := store.Get(task.ID())
	require.NoError(t, err)
	assert.Equal(t, collector.StateFailed, run.State)
	assert.Equal(t, "disk full", run.Reason)
	assert.Equal(t, 30, run.Progress)
}

// TestRecord_UnknownRun verifies recording requires Begin
func TestRecord_UnknownRun(t *testing.T) {
	store := createTestRunStore(t)

	err := store.Record(collector.StatusEvent{TaskID: uuid.New(), State: collector.StateCompleted})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// TestGet_NotFound verifies missing runs
func TestGet_NotFound(t *testing.T) {
	store := createTestRunStore(t)

	_, err := store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// TestList verifies newest-first ordering and limit
func TestList(t *testing.T) {
	store := createTestRunStore(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		task := startTask(t, 1, time.Millisecond)
		require.NoError(t, store.Track(context.Background(), task))
		ids = append(ids, task.ID())
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].TaskID)
	assert.Equal(t, ids[0], all[2].TaskID)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
