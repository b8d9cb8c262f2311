package retry_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"bayloe/internal/retry"
)

var _ retry.Policy = retry.Fixed(1, 0)

func run(t *testing.T, name string, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, fn)
	})
}

func TestFixedAttempt(t *testing.T) {
	run(t, "Waits interval between attempts", func(t *testing.T) {
		p := retry.Fixed(3, time.Second)
		start := time.Now()
		for i := range 3 {
			if !p.Attempt(t.Context()) {
				t.Fatalf("attempt %d refused", i+1)
			}
			if elapsed := time.Since(start); elapsed != time.Duration(i)*time.Second {
				t.Fatalf("attempt %d at %s", i+1, elapsed)
			}
		}
		if p.Attempt(t.Context()) {
			t.Fatal("fourth attempt should be refused")
		}
		if elapsed := time.Since(start); elapsed != 2*time.Second {
			t.Fatalf("refusal should not wait, elapsed %s", elapsed)
		}
	})

	run(t, "Context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		p := retry.Fixed(5, time.Second)
		if !p.Attempt(ctx) {
			t.Fatal("first attempt refused")
		}
		cancel()
		if p.Attempt(ctx) {
			t.Fatal("attempt after cancel should be refused")
		}
	})

	run(t, "Derive resets state", func(t *testing.T) {
		p := retry.Fixed(1, time.Second)
		p.Attempt(t.Context())
		if p.Attempt(t.Context()) {
			t.Fatal("exhausted policy granted an attempt")
		}
		if !p.Derive().Attempt(t.Context()) {
			t.Fatal("derived policy should start fresh")
		}
	})
}

func TestDo(t *testing.T) {
	run(t, "Exhausts attempts and returns last error", func(t *testing.T) {
		start := time.Now()
		var stamps []time.Duration
		err := retry.Do(t.Context(), retry.Fixed(3, time.Second), func(_ context.Context, attempt int) error {
			stamps = append(stamps, time.Since(start))
			return errors.New("boom " + string(rune('0'+attempt)))
		})
		if err == nil || err.Error() != "boom 3" {
			t.Fatalf("expected last error, got %v", err)
		}
		want := []time.Duration{0, time.Second, 2 * time.Second}
		if len(stamps) != len(want) {
			t.Fatalf("expected %d attempts, got %d", len(want), len(stamps))
		}
		for i := range want {
			if stamps[i] != want[i] {
				t.Fatalf("attempt %d at %s, want %s", i+1, stamps[i], want[i])
			}
		}
	})

	run(t, "Stops on success", func(t *testing.T) {
		calls := 0
		err := retry.Do(t.Context(), retry.Fixed(3, time.Second), func(context.Context, int) error {
			calls++
			if calls == 2 {
				return nil
			}
			return errors.New("transient")
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 2 {
			t.Fatalf("expected 2 calls, got %d", calls)
		}
	})

	run(t, "Cancellation joins context error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		failure := errors.New("decode failed")
		err := retry.Do(ctx, retry.Fixed(3, time.Second), func(context.Context, int) error {
			cancel()
			return failure
		})
		if !errors.Is(err, failure) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected joined errors, got %v", err)
		}
	})

	run(t, "Already cancelled context runs nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		calls := 0
		err := retry.Do(ctx, retry.Fixed(3, time.Second), func(context.Context, int) error {
			calls++
			return nil
		})
		if calls != 0 || !errors.Is(err, context.Canceled) {
			t.Fatalf("calls=%d err=%v, want 0 calls and context.Canceled", calls, err)
		}
	})

	run(t, "Policy is not consumed by Do", func(t *testing.T) {
		p := retry.Fixed(2, 0)
		for range 2 {
			calls := 0
			_ = retry.Do(t.Context(), p, func(context.Context, int) error {
				calls++
				return errors.New("x")
			})
			if calls != 2 {
				t.Fatalf("expected 2 calls per Do, got %d", calls)
			}
		}
	})
}
