package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_SameSource_EnforcesMinDelay(t *testing.T) {
	limiter := NewSourceLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "heb"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "heb"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSources_NoCrossBlocking(t *testing.T) {
	limiter := NewSourceLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "heb"); err != nil {
		t.Fatalf("heb wait: %v", err)
	}

	// Immediately call for indeed — should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "indeed"); err != nil {
		t.Fatalf("indeed wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected indeed wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_PerSourceOverride(t *testing.T) {
	limiter := NewSourceLimiter(5*time.Second, map[string]time.Duration{"fast": 50 * time.Millisecond})
	ctx := context.Background()

	if err := limiter.Wait(ctx, "fast"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "fast"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("override not applied, waited %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSourceLimiter(5*time.Second, nil) // long delay
	if err := limiter.Wait(context.Background(), "heb"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	if err := limiter.Wait(ctx, "heb"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}
