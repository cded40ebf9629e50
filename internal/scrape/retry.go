package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// IsTimeout reports whether err looks like a transient network timeout.
// Anything else is treated as non-transient and not retried.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Retrier retries a single-URL discovery call on timeout-classified errors
// with a fixed, non-exponential delay. The call's own result is returned
// unchanged on success; any panic inside the operation is converted to an
// error so one bad URL can never take down the run.
type Retrier struct {
	MaxRetries int
	Delay      time.Duration
	Logger     *slog.Logger

	// sleep is swappable for tests; nil means a context-aware time.Sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(maxRetries int, delay time.Duration, logger *slog.Logger) Retrier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Retrier{MaxRetries: maxRetries, Delay: delay, Logger: logger}
}

func (r Retrier) wait(ctx context.Context) error {
	if r.sleep != nil {
		return r.sleep(ctx, r.Delay)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.Delay):
		return nil
	}
}

// Do invokes op(ctx, url) up to r.MaxRetries times. Only timeout-classified
// failures are retried; every other failure returns immediately.
func Do[T any](ctx context.Context, r Retrier, rawURL string, op func(ctx context.Context, url string) ([]T, error)) ([]T, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		data, err := invoke(ctx, rawURL, op)
		if err == nil {
			if attempt > 1 {
				logger.Info("scrape.retry.recovered", "url", rawURL, "attempt", attempt)
			}
			return data, nil
		}
		lastErr = err

		if !IsTimeout(err) {
			logger.Error("scrape.retry.giving_up", "url", rawURL, "attempt", attempt, "error", err)
			return nil, err
		}
		if attempt == r.MaxRetries {
			break
		}
		logger.Warn("scrape.retry.timeout",
			"url", rawURL,
			"attempt", attempt,
			"max_retries", r.MaxRetries,
			"delay", r.Delay,
			"error", err,
		)
		if werr := r.wait(ctx); werr != nil {
			return nil, werr
		}
	}
	logger.Error("scrape.retry.exhausted", "url", rawURL, "max_retries", r.MaxRetries, "error", lastErr)
	return nil, lastErr
}

// invoke guards a single operation call against panics.
func invoke[T any](ctx context.Context, rawURL string, op func(ctx context.Context, url string) ([]T, error)) (data []T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("scrape operation panicked: %v", rec)
		}
	}()
	return op(ctx, rawURL)
}
