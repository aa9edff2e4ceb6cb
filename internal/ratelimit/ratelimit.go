package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SourceLimiter enforces a minimum delay between consecutive requests to the
// same source site. Scrapers call Wait before every page fetch so total
// outbound request-rate per site stays bounded even across runs.
type SourceLimiter struct {
	mu        sync.Mutex
	lastCall  map[string]time.Time // key: source name
	minDelay  time.Duration
	overrides map[string]time.Duration // per-source overrides
}

// NewSourceLimiter creates a limiter enforcing minDelay between consecutive
// requests to the same source, with optional per-source overrides.
func NewSourceLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceLimiter {
	return &SourceLimiter{
		lastCall:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

func (l *SourceLimiter) delayFor(source string) time.Duration {
	if d, ok := l.overrides[source]; ok {
		return d
	}
	return l.minDelay
}

// Wait blocks until enough time has passed since the last request to source.
// Returns an error if the context is cancelled while waiting.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	last, ok := l.lastCall[source]
	now := time.Now()

	if !ok {
		l.lastCall[source] = now
		l.mu.Unlock()
		return nil
	}

	minDelay := l.delayFor(source)
	elapsed := now.Sub(last)
	if elapsed >= minDelay {
		l.lastCall[source] = now
		l.mu.Unlock()
		return nil
	}

	remaining := minDelay - elapsed
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-time.After(remaining):
	}

	l.mu.Lock()
	l.lastCall[source] = time.Now()
	l.mu.Unlock()

	return nil
}
