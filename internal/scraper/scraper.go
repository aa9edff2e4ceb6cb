// Package scraper holds the source scraper implementations. Each scraper
// produces the raw postings for one configured source; per-site parsing stays
// thin and all the classification logic lives in the ingest package.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/ratelimit"
	"github.com/danilopena0/canopy/internal/retry"
)

const (
	fetchRetries   = 2
	fetchBaseDelay = 5 * time.Second
)

// fetch performs one rate-limited GET with retries and returns the body.
// The limiter wait runs before every request so inter-request delays within a
// source are preserved even across pages.
func fetch(ctx context.Context, client *http.Client, limiter *ratelimit.SourceLimiter, logger *slog.Logger, source, url string) ([]byte, error) {
	if err := limiter.Wait(ctx, source); err != nil {
		return nil, err
	}

	return retry.Do(ctx, logger, fetchRetries, fetchBaseDelay, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &model.HTTPError{
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", url, err)
		}
		return body, nil
	})
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
