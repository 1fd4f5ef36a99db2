package poller

import (
	"context"
	"time"

	"tb-storyboard/internal/entity"
)

const (
	DefaultInterval          = time.Second
	DefaultGenerationTimeout = 300 * time.Second
)

// Until sleeps interval, samples once, and stops as soon as satisfied holds
// or timeout has elapsed. Sample errors count as unsatisfied samples: the
// page may be mid re-render. The wait never exceeds timeout, and a cancelled
// ctx ends it early as unsatisfied.
func Until[T any](
	ctx context.Context,
	sample func(ctx context.Context) (T, error),
	satisfied func(T) bool,
	interval, timeout time.Duration,
) entity.PollResult {
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(timeout)

	var res entity.PollResult

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		if !Sleep(ctx, min(interval, remaining)) {
			break
		}

		value, err := sample(ctx)
		if err == nil {
			res.LastObserved = value

			if satisfied(value) {
				res.Satisfied = true
				res.Elapsed = time.Since(start)

				return res
			}
		}
	}

	res.Elapsed = time.Since(start)

	return res
}

// Sleep waits for d or until ctx is done, reporting whether the full
// duration passed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// AnyOf is satisfied when at least one predicate is.
func AnyOf[T any](preds ...func(T) bool) func(T) bool {
	return func(v T) bool {
		for _, p := range preds {
			if p(v) {
				return true
			}
		}

		return false
	}
}
