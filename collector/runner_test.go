package collector

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: gateWork blocks each unit until the gate yields or ctx ends.
type gateWork struct {
	units int
	gate  chan struct{}
}

func (w *gateWork) Units() int { return w.units }

func (w *gateWork) Do(ctx context.Context, _ int) error {
	select {
	case <-w.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Test helper: failWork fails at a given unit.
type failWork struct {
	units  int
	failAt int
	err    error
}

func (w *failWork) Units() int { return w.units }

func (w *failWork) Do(_ context.Context, unit int) error {
	if unit == w.failAt {
		return w.err
	}
	return nil
}

// Test helper: factory returning the given work.
func fixed(work Work) WorkFactory {
	return func(context.Context, uuid.UUID, taskconfig.TaskConfig) (Work, error) {
		return work, nil
	}
}

// Test helper: runner with a silent logger.
func newTestRunner(factory WorkFactory) *Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRunner(factory, WithLogger(log))
}

// Test helper: a valid config.
func testConfig(t *testing.T) taskconfig.TaskConfig {
	t.Helper()
	cfg, err := taskconfig.Validate(taskconfig.RawInput{RangeMode: "last_24h", Parking: true}, time.Now())
	require.NoError(t, err)
	return cfg
}

// Test helper: drain a subscription until it closes.
func collect(t *testing.T, ch <-chan StatusEvent) []StatusEvent {
	t.Helper()
	var events []StatusEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("subscription did not close")
			return nil
		}
	}
}

// Test helper: wait for the task to finish.
func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not reach a terminal state")
	}
}

// Test helper: wait until the latest event matches.
func waitFor(t *testing.T, task *Task, match func(StatusEvent) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		return match(task.Snapshot())
	}, 5*time.Second, time.Millisecond)
}

// TestRunner_Completes verifies a task runs to completion with monotonic
// progress ending at 100
func TestRunner_Completes(t *testing.T) {
	runner := newTestRunner(Simulated(50, time.Millisecond))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	events := collect(t, task.Subscribe(context.Background()))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, StateCompleted, last.State)
	assert.Equal(t, 100, last.Progress)
	assert.Empty(t, last.Reason)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress)
		assert.Equal(t, events[i-1].Seq+1, events[i].Seq)
	}
	assert.Equal(t, last, task.Snapshot())
}

// TestRunner_StartPublishesRunning verifies the first event is running at 0
func TestRunner_StartPublishesRunning(t *testing.T) {
	work := &gateWork{units: 3, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	snap := task.Snapshot()
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, task.ID(), snap.TaskID)

	close(work.gate)
	waitDone(t, task)
}

// TestRunner_ProgressSteps verifies each unit advances progress evenly
func TestRunner_ProgressSteps(t *testing.T) {
	work := &gateWork{units: 4, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	sub := task.Subscribe(context.Background())

	close(work.gate)
	events := collect(t, sub)

	var progress []int
	for _, ev := range events {
		progress = append(progress, ev.Progress)
	}
	assert.Equal(t, []int{0, 25, 50, 75, 100, 100}, progress)
	assert.Equal(t, "completed 50%", events[2].Message)
}

// TestRunner_AlreadyRunning verifies a second start is rejected and leaves
// the first task alone
func TestRunner_AlreadyRunning(t *testing.T) {
	work := &gateWork{units: 5, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	first, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	second, err := runner.Start(testConfig(t))
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Nil(t, second)
	assert.Equal(t, StateRunning, first.State())
	assert.Same(t, first, runner.Current())

	first.Cancel()
	waitDone(t, first)
}

// TestRunner_StartAfterTerminal verifies a new task can start once the
// previous one has finished
func TestRunner_StartAfterTerminal(t *testing.T) {
	runner := newTestRunner(Simulated(2, time.Millisecond))

	first, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, first)

	second, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, StateCompleted, first.State(), "old task keeps its terminal state")

	waitDone(t, second)
}

// TestRunner_Cancel verifies cancellation passes through cancelling to
// cancelled and no running event follows cancelling
func TestRunner_Cancel(t *testing.T) {
	work := &gateWork{units: 10, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	sub := task.Subscribe(context.Background())

	work.gate <- struct{}{}
	work.gate <- struct{}{}
	waitFor(t, task, func(ev StatusEvent) bool { return ev.Progress == 20 })

	assert.True(t, task.Cancel())
	events := collect(t, sub)

	last := events[len(events)-1]
	assert.Equal(t, StateCancelled, last.State)
	assert.Equal(t, 20, last.Progress, "progress is frozen at the cancel point")

	sawCancelling := false
	for _, ev := range events {
		if ev.State == StateCancelling {
			sawCancelling = true
			continue
		}
		if sawCancelling {
			assert.NotEqual(t, StateRunning, ev.State)
		}
	}
	assert.True(t, sawCancelling)
}

// TestRunner_CancelImmediately verifies cancel before any progress ends at 0
func TestRunner_CancelImmediately(t *testing.T) {
	work := &gateWork{units: 10, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	assert.True(t, task.Cancel())
	waitDone(t, task)

	snap := task.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Equal(t, 0, snap.Progress)
}

// TestRunner_CancelByID verifies lookup-based cancel on the runner
func TestRunner_CancelByID(t *testing.T) {
	work := &gateWork{units: 10, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	_, ok := runner.Cancel(uuid.New())
	assert.False(t, ok)

	got, ok := runner.Cancel(task.ID())
	require.True(t, ok)
	assert.Same(t, task, got)
	waitDone(t, task)
	assert.Equal(t, StateCancelled, task.State())
}

// TestTask_CancelNoop verifies cancel on a finished task changes nothing
func TestTask_CancelNoop(t *testing.T) {
	runner := newTestRunner(Simulated(1, time.Millisecond))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, task)

	before := task.Snapshot()
	assert.False(t, task.Cancel())
	assert.Equal(t, before, task.Snapshot())
}

// TestRunner_UnitFailure verifies a unit error fails the task with a reason
func TestRunner_UnitFailure(t *testing.T) {
	runner := newTestRunner(fixed(&failWork{units: 4, failAt: 2, err: errors.New("source unreachable")}))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, task)

	snap := task.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "source unreachable", snap.Reason)
	assert.Equal(t, 50, snap.Progress)
}

// TestRunner_FactoryError verifies a factory error fails the task
func TestRunner_FactoryError(t *testing.T) {
	runner := newTestRunner(func(context.Context, uuid.UUID, taskconfig.TaskConfig) (Work, error) {
		return nil, errors.New("no sources")
	})

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, task)

	snap := task.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Reason, "no sources")
}

// TestRunner_ZeroUnits verifies empty work completes at once
func TestRunner_ZeroUnits(t *testing.T) {
	runner := newTestRunner(fixed(&gateWork{units: 0}))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, task)

	assert.Equal(t, StateCompleted, task.State())
	assert.Equal(t, 100, task.Snapshot().Progress)
}

// TestTask_SubscribersSeeSameSequence verifies broadcast to several observers
func TestTask_SubscribersSeeSameSequence(t *testing.T) {
	work := &gateWork{units: 5, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	a := task.Subscribe(context.Background())
	b := task.Subscribe(context.Background())
	close(work.gate)

	eventsA := collect(t, a)
	eventsB := collect(t, b)
	assert.Equal(t, eventsA, eventsB)
	assert.Equal(t, StateCompleted, eventsA[len(eventsA)-1].State)
}

// TestTask_SubscribeAfterTerminal verifies a late subscriber gets the final
// event and a closed channel
func TestTask_SubscribeAfterTerminal(t *testing.T) {
	runner := newTestRunner(Simulated(1, time.Millisecond))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)
	waitDone(t, task)

	events := collect(t, task.Subscribe(context.Background()))
	require.Len(t, events, 1)
	assert.Equal(t, StateCompleted, events[0].State)
}

// TestTask_SubscribeContextEnds verifies unsubscribing by context
func TestTask_SubscribeContextEnds(t *testing.T) {
	work := &gateWork{units: 5, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sub := task.Subscribe(ctx)
	<-sub
	cancel()

	_ = collect(t, sub)

	task.Cancel()
	waitDone(t, task)
}

// TestRunner_Stop verifies Stop cancels and waits
func TestRunner_Stop(t *testing.T) {
	work := &gateWork{units: 5, gate: make(chan struct{})}
	runner := newTestRunner(fixed(work))

	require.NoError(t, runner.Stop(context.Background()), "stop with no task")

	task, err := runner.Start(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, runner.Stop(context.Background()))
	assert.Equal(t, StateCancelled, task.State())
}

// TestSimulated_Defaults verifies non-positive values use the defaults
func TestSimulated_Defaults(t *testing.T) {
	work, err := Simulated(0, 0)(context.Background(), uuid.New(), taskconfig.TaskConfig{})
	require.NoError(t, err)

	sim, ok := work.(*SimulatedWork)
	require.True(t, ok)
	assert.Equal(t, DefaultSimulatedSteps, sim.Steps)
	assert.Equal(t, DefaultSimulatedInterval, sim.Interval)
}

// TestSimulatedWork_Cancel verifies a step returns on context cancel
func TestSimulatedWork_Cancel(t *testing.T) {
	work := &SimulatedWork{Steps: 1, Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, work.Do(ctx, 0), context.Canceled)
}
