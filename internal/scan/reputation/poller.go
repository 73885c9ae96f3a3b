package reputation

import (
	"context"
	"time"

	"github.com/brightpath/safescan/pkg/errors"
)

// Poller bounds an asynchronous analysis wait: a fixed interval between
// attempts, a maximum attempt count, and an overall deadline covering the
// sum of all attempts. The sleep function is injectable so tests run against
// a fake clock.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Deadline    time.Duration

	// Sleep waits for the interval or until the context is done. Nil means
	// real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller with real-time sleeping.
func NewPoller(interval time.Duration, maxAttempts int, deadline time.Duration) Poller {
	return Poller{Interval: interval, MaxAttempts: maxAttempts, Deadline: deadline}
}

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait invokes check once per interval until it reports done, the attempt
// budget is exhausted, or the deadline passes. Exhaustion returns
// ErrScanTimeout; it is never silently treated as success.
func (p Poller) Wait(ctx context.Context, check func(ctx context.Context) (done bool, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}

	ctx, cancel := context.WithTimeout(ctx, p.Deadline)
	defer cancel()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return errors.ErrScanTimeout
}
