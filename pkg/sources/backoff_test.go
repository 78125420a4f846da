package sources

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestBackoff(s *recordingSleep) Backoff {
	return Backoff{Initial: 5 * time.Second, Ceiling: 60 * time.Second, Sleep: s.sleep}
}

func TestBackoffAbandonsAfterCeiling(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	out := newTestBackoff(s).Run(context.Background(), func(context.Context) error {
		calls++
		return ErrRateLimited
	})

	if out.State != StateAbandoned {
		t.Fatalf("expected abandoned, got %s", out.State)
	}
	if calls != 4 || out.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got calls=%d attempts=%d", calls, out.Attempts)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}
	if !reflect.DeepEqual(s.delays, want) {
		t.Fatalf("unexpected sleeps %v, want %v", s.delays, want)
	}
	if !errors.Is(out.Err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", out.Err)
	}
}

func TestBackoffSucceedsAfterThreeRateLimits(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	out := newTestBackoff(s).Run(context.Background(), func(context.Context) error {
		calls++
		if calls <= 3 {
			return ErrRateLimited
		}
		return nil
	})

	if out.State != StateSucceeded || out.Err != nil {
		t.Fatalf("expected success, got %s err=%v", out.State, out.Err)
	}
	if out.Attempts != 4 {
		t.Fatalf("expected success on attempt 4, got %d", out.Attempts)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	if !reflect.DeepEqual(s.delays, want) {
		t.Fatalf("unexpected sleeps %v, want %v", s.delays, want)
	}
}

func TestBackoffAbandonsOtherErrorsImmediately(t *testing.T) {
	s := &recordingSleep{}
	out := newTestBackoff(s).Run(context.Background(), func(context.Context) error {
		return errTransport
	})

	if out.State != StateAbandoned || out.Attempts != 1 {
		t.Fatalf("expected abandon on first attempt, got %s after %d", out.State, out.Attempts)
	}
	if len(s.delays) != 0 {
		t.Fatalf("expected no sleeps, got %v", s.delays)
	}
}

func TestBackoffStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Backoff{Initial: time.Hour, Ceiling: 2 * time.Hour}.Run(ctx, func(context.Context) error {
		return ErrRateLimited
	})
	if out.State != StateAbandoned || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("expected cancellation to abandon, got %s err=%v", out.State, out.Err)
	}
}
