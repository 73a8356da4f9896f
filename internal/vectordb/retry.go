package vectordb

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries transient failures with bounded exponential backoff.
// It is applied uniformly to all index operations so backoff behavior lives
// in one place rather than per call site.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the documented index contract: up to 3 attempts,
// 200ms base delay, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Do runs op, retrying while it returns transient errors. Non-transient
// errors return immediately. After the attempt budget is spent, the last
// transient failure is surfaced as ErrUnavailable.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		last = err
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, attempts, last)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	d := base << uint(attempt)
	if max := p.MaxDelay; max > 0 && d > max {
		d = max
	}
	return d
}
