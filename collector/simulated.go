package collector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/taskconfig"
)

// Default pacing for simulated work: 50 steps of 2%, one every 100ms.
const (
	DefaultSimulatedSteps    = 50
	DefaultSimulatedInterval = 100 * time.Millisecond
)

// SimulatedWork advances progress on a timer without fetching anything.
type SimulatedWork struct {
	Steps    int
	Interval time.Duration
}

func (w *SimulatedWork) Units() int {
	return w.Steps
}

// Do waits one interval. It returns early with ctx's error on cancellation.
func (w *SimulatedWork) Do(ctx context.Context, _ int) error {
	timer := time.NewTimer(w.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Simulated returns a factory producing SimulatedWork. Non-positive values
// fall back to the defaults.
func Simulated(steps int, interval time.Duration) WorkFactory {
	if steps <= 0 {
		steps = DefaultSimulatedSteps
	}
	if interval <= 0 {
		interval = DefaultSimulatedInterval
	}
	return func(context.Context, uuid.UUID, taskconfig.TaskConfig) (Work, error) {
		return &SimulatedWork{Steps: steps, Interval: interval}, nil
	}
}
