package engine

import (
	"context"
	"time"
)

// DefaultPaceInterval is the delay between consecutive remote calls when
// no other policy is configured.
const DefaultPaceInterval = time.Second

// Pacer spaces out consecutive remote calls. The applier paces between
// calls, never before the first or after the last, so a single-change
// batch pays no delay.
type Pacer interface {
	// Pace blocks for one interval or until the context is done.
	Pace(ctx context.Context) error
}

// IntervalPacer waits a fixed duration. A zero or negative interval
// disables pacing.
type IntervalPacer struct {
	interval time.Duration
}

// NewIntervalPacer creates a pacer with the given delay between calls.
func NewIntervalPacer(interval time.Duration) IntervalPacer {
	return IntervalPacer{interval: interval}
}

func (p IntervalPacer) Pace(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer never waits. Used by tests and the harness.
type NopPacer struct{}

func (NopPacer) Pace(context.Context) error { return nil }
