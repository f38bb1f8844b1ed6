package relay

import (
	"context"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollWaiter probes at t=0, Interval, 2*Interval, ... and gives up once
// MaxWait of sleeping has accumulated. Probe errors count as not found.
type PollWaiter struct {
	Interval time.Duration
	MaxWait  time.Duration
	Sleep    SleepFunc // nil = real time
}

// Wait implements domain.Waiter.
func (w PollWaiter) Wait(ctx context.Context, probe func(context.Context) (bool, error)) (bool, error) {
	sleep := w.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}

	for waited := time.Duration(0); waited < w.MaxWait; {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if ok, err := probe(ctx); err == nil && ok {
			return true, nil
		}
		step := min(interval, w.MaxWait-waited)
		if err := sleep(ctx, step); err != nil {
			return false, err
		}
		waited += step
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
