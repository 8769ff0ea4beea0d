package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_RateLimitedTwiceThenSuccess(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastConfig(), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("rate limited"), 429)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestDo_NonRetryableError_SingleAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return errors.New("permanent: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls)
	}
}

func TestDo_ExhaustsRetries_PropagatesLastError(t *testing.T) {
	var calls int
	sentinel := NewTransientError(errors.New("always 500"), 500)
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDoVal_HonorsRetryAfter(t *testing.T) {
	var delays []time.Duration
	cfg := fastConfig()
	cfg.OnRetry = func(_ int, delay time.Duration, _ error) {
		delays = append(delays, delay)
	}

	var calls int
	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewRateLimitError(errors.New("429"), 5*time.Millisecond)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 5*time.Millisecond {
		t.Errorf("expected server-supplied 5ms delay, got %v", delays)
	}
}

func TestDo_OnRetryReportsAttemptAndDelay(t *testing.T) {
	type call struct {
		attempt int
		delay   time.Duration
	}
	var seen []call
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, delay time.Duration, _ error) {
		seen = append(seen, call{attempt, delay})
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("503"), 503)
	})

	if len(seen) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %d", len(seen))
	}
	if seen[0].attempt != 1 || seen[1].attempt != 2 {
		t.Errorf("unexpected attempt numbers: %+v", seen)
	}
	if seen[1].delay != 2*seen[0].delay {
		t.Errorf("expected doubling backoff, got %v then %v", seen[0].delay, seen[1].delay)
	}
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return NewTransientError(errors.New("transient"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation stopped retries, got %d", calls)
	}
}
