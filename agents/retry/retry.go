/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retry behavior for outbound API calls.
type Config struct {
	// MaxRetries is the number of retries after the first attempt. 0 disables retrying.
	MaxRetries int
	// BaseBackoff is the wait before the first retry; it doubles on every attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MaxJitter is the upper bound of the random jitter added to each wait.
	MaxJitter time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// ModelConfig returns the configuration used for language model calls.
// Model providers rate limit by quota, which takes a while to recover.
func ModelConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// ReadConfig returns the configuration used for idempotent source host reads.
func ReadConfig() Config {
	return Config{
		MaxRetries:  2,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// IsRetryableStatus reports whether an HTTP status code denotes a transient failure.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or the retries run out.
// Waits grow exponentially from BaseBackoff, capped at MaxBackoff, plus jitter.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var (
		res     T
		lastErr error
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		res, lastErr = fn()
		if lastErr == nil {
			return res, nil
		}
		if !isRetryable(lastErr) {
			return res, lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		wait := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff) + jitter(cfg.MaxJitter)

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(wait):
		}
	}

	if cfg.MaxRetries == 0 {
		return res, lastErr
	}
	return res, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
