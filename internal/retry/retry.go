// Package retry wraps provider invocations with bounded exponential
// backoff. Do operates over any operation returning an error rather than
// only an *http.Response, since Bedrock invocations never touch net/http
// directly.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/providerclient"
)

// Config tunes the retry loop. Zero values fall back to sane defaults.
type Config struct {
	MaxAttempts int           // total attempts including the first; default 3
	BaseBackoff time.Duration // default 1s
	MaxBackoff  time.Duration // default 10s
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	return c
}

// Do runs op, retrying on transient network errors and the retryable
// subset of providerclient.UpstreamError, up to cfg.MaxAttempts times with
// exponential backoff and full jitter. Streaming callers must only pass
// the connect step as op: retries never apply mid-stream, since any bytes
// already sent to the client can't be unsent.
func Do(ctx context.Context, cfg Config, provider string, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := op(ctx)
		duration := time.Since(start)

		slog.Debug("provider invocation attempt",
			"provider", provider, "attempt", attempt+1, "max_attempts", cfg.MaxAttempts,
			"duration", duration, "error", err)

		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		retryable, waitFor := classify(err)
		if !retryable {
			slog.Debug("non-retryable provider error", "provider", provider, "error", err)
			return err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := computeBackoff(cfg.BaseBackoff, cfg.MaxBackoff, attempt)
		if waitFor > 0 {
			backoff = waitFor
		}

		slog.Debug("backing off before retry", "provider", provider, "backoff", backoff, "next_attempt", attempt+2)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	slog.Warn("provider invocation exhausted all retries", "provider", provider, "attempts", cfg.MaxAttempts, "error", lastErr)
	return fmt.Errorf("retry: max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// classify reports whether err is worth retrying, and an optional
// provider-dictated wait (from Retry-After / a Bedrock throttle hint).
func classify(err error) (retryable bool, waitFor time.Duration) {
	var upErr *providerclient.UpstreamError
	if errors.As(err, &upErr) {
		return shouldRetryStatus(upErr.StatusCode), upErr.RetryAfter
	}
	return isTransientNetError(err), 0
}

func shouldRetryStatus(status int) bool {
	switch {
	case status == 0:
		return true
	case status == 429, status == 408:
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

func isTransientNetError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial", "read", "write":
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "broken pipe", "no such host", "temporary failure"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// computeBackoff implements full-jitter exponential backoff.
func computeBackoff(base, max time.Duration, attempt int) time.Duration {
	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}

	multiplier := math.Pow(2, float64(attempt))
	backoff := time.Duration(float64(base) * multiplier)
	if backoff > max {
		backoff = max
	}

	return time.Duration(rand.Float64() * float64(backoff))
}
