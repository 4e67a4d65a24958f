package deploy

import (
	"context"
	"time"
)

// Clock abstracts wall-clock waits so tests can simulate elapsed time. The
// job poll and activation retry are the only operations that sleep.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
