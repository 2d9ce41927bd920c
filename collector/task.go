package collector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/taskconfig"
)

// State is the lifecycle state of a collection task.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// IsTerminal reports whether no further events follow this state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// StatusEvent is an immutable snapshot of a task, published on every state
// or progress change.
type StatusEvent struct {
	TaskID   uuid.UUID `json:"task_id"`
	Seq      int       `json:"seq"`
	State    State     `json:"state"`
	Progress int       `json:"progress"`
	Message  string    `json:"message"`
	Reason   string    `json:"reason,omitempty"` // set only when State is failed
	At       time.Time `json:"at"`
}

// Task is the handle to one collection run. Observers read it through
// Snapshot and Subscribe; the only mutation open to them is Cancel.
type Task struct {
	id     uuid.UUID
	config taskconfig.TaskConfig

	mu       sync.Mutex
	events   []StatusEvent
	changed  chan struct{}
	done     chan struct{}
	stopUnit context.CancelFunc
}

func newTask(cfg taskconfig.TaskConfig, stopUnit context.CancelFunc) *Task {
	return &Task{
		id:       uuid.New(),
		config:   cfg,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
		stopUnit: stopUnit,
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Config returns the configuration the task was started with.
func (t *Task) Config() taskconfig.TaskConfig {
	return t.config
}

// Snapshot returns the most recent event.
func (t *Task) Snapshot() StatusEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastLocked()
}

// State returns the current state.
func (t *Task) State() State {
	return t.Snapshot().State
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel asks a running task to stop. The task moves to cancelling at once
// and reaches cancelled at the next increment boundary. It returns false,
// and does nothing, if the task is not running.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.lastLocked()
	if cur.State != StateRunning {
		return false
	}
	t.publishLocked(StateCancelling, cur.Progress, "cancelling", "")
	t.stopUnit()
	return true
}

// Subscribe streams events starting from the latest one. The channel closes
// after the terminal event, or when ctx ends. Every subscriber sees the same
// ordered sequence from its starting point.
func (t *Task) Subscribe(ctx context.Context) <-chan StatusEvent {
	ch := make(chan StatusEvent)

	t.mu.Lock()
	next := max(len(t.events)-1, 0)
	t.mu.Unlock()

	go func() {
		defer close(ch)
		for {
			t.mu.Lock()
			pending := t.events[next:]
			changed := t.changed
			t.mu.Unlock()

			for _, ev := range pending {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				next++
				if ev.State.IsTerminal() {
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

func (t *Task) lastLocked() StatusEvent {
	if len(t.events) == 0 {
		return StatusEvent{TaskID: t.id, State: StateIdle}
	}
	return t.events[len(t.events)-1]
}

// publishLocked appends an event and wakes subscribers. Events are never
// modified after they are appended.
func (t *Task) publishLocked(state State, progress int, message, reason string) StatusEvent {
	ev := StatusEvent{
		TaskID:   t.id,
		Seq:      len(t.events),
		State:    state,
		Progress: progress,
		Message:  message,
		Reason:   reason,
		At:       time.Now(),
	}
	t.events = append(t.events, ev)

	close(t.changed)
	t.changed = make(chan struct{})
	if state.IsTerminal() {
		close(t.done)
	}
	return ev
}
