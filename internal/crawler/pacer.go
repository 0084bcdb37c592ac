package crawler

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer waits between requests.
type Pacer interface {
	Pause(ctx context.Context, min, max time.Duration) error
}

// RandomPacer sleeps a uniformly random duration in [min, max].
type RandomPacer struct{}

func (RandomPacer) Pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += rand.N(max - min + 1)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
