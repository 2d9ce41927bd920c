package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/metrics"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned by Start while another task is running or
// cancelling on the same runner.
var ErrAlreadyRunning = errors.New("a collection task is already running")

// Work is a collection job split into discrete units. Each unit is one
// progress increment.
type Work interface {
	Units() int
	Do(ctx context.Context, unit int) error
}

// Describer lets Work supply the status message shown after each unit.
type Describer interface {
	Describe(done, total int) string
}

// WorkFactory builds the Work for a task. It runs on the task's worker
// goroutine; an error fails the task.
type WorkFactory func(ctx context.Context, taskID uuid.UUID, cfg taskconfig.TaskConfig) (Work, error)

// Runner executes at most one collection task at a time.
type Runner struct {
	factory WorkFactory
	log     logrus.FieldLogger

	mu      sync.Mutex
	current *Task
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// NewRunner creates a runner that builds each task's work with factory.
func NewRunner(factory WorkFactory, opts ...Option) *Runner {
	r := &Runner{
		factory: factory,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new task and returns immediately. It fails with
// ErrAlreadyRunning if the current task has not reached a terminal state;
// that task is left untouched.
func (r *Runner) Start(cfg taskconfig.TaskConfig) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.State().IsTerminal() {
		return nil, ErrAlreadyRunning
	}

	ctx, stop := context.WithCancel(context.Background())
	task := newTask(cfg, stop)

	task.mu.Lock()
	task.publishLocked(StateRunning, 0, "collection started", "")
	task.mu.Unlock()

	r.current = task
	metrics.TasksStarted.Inc()
	r.log.WithFields(logrus.Fields{
		"task_id":    task.id,
		"range_mode": cfg.RangeMode,
		"terms":      cfg.Terms(),
	}).Info("collection task started")

	go r.run(ctx, task)
	return task, nil
}

// Current returns the most recently started task, or nil.
func (r *Runner) Current() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Lookup returns the current task if its ID matches.
func (r *Runner) Lookup(id uuid.UUID) (*Task, bool) {
	task := r.Current()
	if task == nil || task.id != id {
		return nil, false
	}
	return task, true
}

// Cancel cancels the task with the given ID. It reports whether such a task
// is known; cancelling a task that is not running is a no-op.
func (r *Runner) Cancel(id uuid.UUID) (*Task, bool) {
	task, ok := r.Lookup(id)
	if !ok {
		return nil, false
	}
	task.Cancel()
	return task, true
}

// Stop cancels the current task, if any, and waits for it to finish or for
// ctx to end.
func (r *Runner) Stop(ctx context.Context) error {
	task := r.Current()
	if task == nil {
		return nil
	}
	task.Cancel()

	select {
	case <-task.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, task *Task) {
	log := r.log.WithField("task_id", task.id)
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			task.mu.Lock()
			r.finishLocked(log, task, StateFailed, fmt.Sprintf("collection panicked: %v", p))
			task.mu.Unlock()
		}
		metrics.TaskDuration.Observe(time.Since(started).Seconds())
	}()

	work, err := r.factory(ctx, task.id, task.config)
	if err != nil {
		task.mu.Lock()
		if task.lastLocked().State == StateCancelling {
			r.finishLocked(log, task, StateCancelled, "")
		} else {
			r.finishLocked(log, task, StateFailed, fmt.Sprintf("preparing collection: %v", err))
		}
		task.mu.Unlock()
		return
	}

	units := work.Units()
	for i := 0; i < units; i++ {
		task.mu.Lock()
		if task.lastLocked().State == StateCancelling {
			r.finishLocked(log, task, StateCancelled, "")
			task.mu.Unlock()
			return
		}
		task.mu.Unlock()

		unitStart := time.Now()
		err := work.Do(ctx, i)
		metrics.UnitsProcessed.Inc()
		metrics.UnitDuration.Observe(time.Since(unitStart).Seconds())

		progress := min(100, (i+1)*100/units)
		message := describe(work, i+1, units, progress)

		task.mu.Lock()
		if task.lastLocked().State == StateCancelling {
			// A unit interrupted by cancellation is not a failure.
			r.finishLocked(log, task, StateCancelled, "")
			task.mu.Unlock()
			return
		}
		if err != nil {
			reason := err.Error()
			if reason == "" {
				reason = fmt.Sprintf("unit %d of %d failed", i+1, units)
			}
			r.finishLocked(log, task, StateFailed, reason)
			task.mu.Unlock()
			return
		}

		task.publishLocked(StateRunning, progress, message, "")
		task.mu.Unlock()
	}

	task.mu.Lock()
	if task.lastLocked().State == StateCancelling {
		r.finishLocked(log, task, StateCancelled, "")
	} else {
		r.finishLocked(log, task, StateCompleted, "")
	}
	task.mu.Unlock()
}

// finishLocked publishes the terminal event. Progress stays where it was,
// except that completion always reports 100.
func (r *Runner) finishLocked(log logrus.FieldLogger, task *Task, state State, reason string) {
	cur := task.lastLocked()
	if cur.State.IsTerminal() {
		return
	}

	progress := cur.Progress
	var message string
	switch state {
	case StateCompleted:
		progress = 100
		message = "collection complete"
	case StateCancelled:
		message = "collection cancelled"
	case StateFailed:
		message = "collection failed: " + reason
	}

	task.publishLocked(state, progress, message, reason)
	task.stopUnit()
	metrics.TasksFinished.WithLabelValues(string(state)).Inc()

	entry := log.WithFields(logrus.Fields{"state": state, "progress": progress})
	if state == StateFailed {
		entry.WithField("reason", reason).Error("collection task failed")
	} else {
		entry.Info("collection task finished")
	}
}

func describe(work Work, done, total, progress int) string {
	if d, ok := work.(Describer); ok {
		return d.Describe(done, total)
	}
	return fmt.Sprintf("completed %d%%", progress)
}
