package vectordb

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnNonTransient(t *testing.T) {
	p := fastRetry()
	calls := 0
	fatal := errors.New("bad request")
	err := p.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want the original error", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := fastRetry()
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return markTransient(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetryExhaustionWrapsUnavailable(t *testing.T) {
	p := fastRetry()
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return markTransient(errors.New("timeout"))
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls != p.MaxAttempts {
		t.Errorf("op called %d times, want %d", calls, p.MaxAttempts)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func() error {
		calls++
		return markTransient(errors.New("timeout"))
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (cancelled during backoff)", calls)
	}
}

func TestRetryDelayIsBoundedExponential(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}
	for i, w := range want {
		if got := p.delay(i); got != w {
			t.Errorf("delay(%d) = %v, want %v", i, got, w)
		}
	}
}
