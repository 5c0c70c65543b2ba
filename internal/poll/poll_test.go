package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastOptions(attempts int) Options {
	return Options{
		Attempts: attempts,
		Delay:    time.Millisecond,
		Timeout:  2 * time.Second,
	}
}

func TestUntil_ConfirmsOnFirstCheck(t *testing.T) {
	res := Until(context.Background(), fastOptions(5), func(context.Context) (bool, error) {
		return true, nil
	})

	if !res.Confirmed || res.Attempts != 1 {
		t.Errorf("Until() = %+v, want confirmed after 1 attempt", res)
	}
}

func TestUntil_InconclusiveThenConfirmed(t *testing.T) {
	calls := 0
	res := Until(context.Background(), fastOptions(5), func(context.Context) (bool, error) {
		calls++
		switch calls {
		case 1:
			return false, nil
		case 2:
			return false, errors.New("connection reset")
		default:
			return true, nil
		}
	})

	if !res.Confirmed {
		t.Fatalf("Until() = %+v, want confirmed", res)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if res.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestUntil_AttemptsExhausted(t *testing.T) {
	res := Until(context.Background(), fastOptions(4), func(context.Context) (bool, error) {
		return false, nil
	})

	if res.Confirmed {
		t.Error("Confirmed = true, want false")
	}
	if res.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", res.Attempts)
	}
	if res.TimedOut || res.LastErr != nil {
		t.Errorf("Until() = %+v, want plain exhaustion", res)
	}
}

func TestUntil_KeepsLastError(t *testing.T) {
	boom := errors.New("boom")
	res := Until(context.Background(), fastOptions(2), func(context.Context) (bool, error) {
		return false, boom
	})

	if !errors.Is(res.LastErr, boom) {
		t.Errorf("LastErr = %v, want %v", res.LastErr, boom)
	}
}

func TestUntil_SingleCheckMinimum(t *testing.T) {
	for _, attempts := range []int{-1, 0, 1} {
		res := Until(context.Background(), fastOptions(attempts), func(context.Context) (bool, error) {
			return false, nil
		})
		if res.Attempts != 1 {
			t.Errorf("Attempts(%d) performed %d checks, want 1", attempts, res.Attempts)
		}
	}
}

func TestUntil_TimeoutEndsBlockedCheck(t *testing.T) {
	opts := Options{Attempts: 10, Delay: time.Millisecond, Timeout: 50 * time.Millisecond}

	start := time.Now()
	res := Until(context.Background(), opts, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})

	if res.Confirmed {
		t.Error("Confirmed = true, want false")
	}
	if !res.TimedOut {
		t.Errorf("Until() = %+v, want TimedOut", res)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("poll took %v, want it bounded by the timeout", elapsed)
	}
}

func TestUntil_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Until(ctx, Options{Attempts: 3, Delay: time.Millisecond, InitialDelay: time.Second}, func(context.Context) (bool, error) {
		t.Error("check should not run after cancellation")
		return true, nil
	})

	if res.Confirmed || res.Attempts != 0 {
		t.Errorf("Until() = %+v, want no attempts", res)
	}
	if !errors.Is(res.LastErr, context.Canceled) {
		t.Errorf("LastErr = %v, want context.Canceled", res.LastErr)
	}
}

func TestUntil_Backoff(t *testing.T) {
	opts := Options{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Backoff: true, Timeout: time.Second}

	res := Until(context.Background(), opts, func(context.Context) (bool, error) {
		return false, nil
	})
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Attempts != 5 || opts.Delay != time.Second || opts.Timeout != 20*time.Second || opts.Backoff {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
}
