/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/docfixer/agents/retry"
)

func fastConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func always(error) bool { return true }
func never(error) bool  { return false }

func TestDo_FirstAttempt(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	got, err := retry.Do(context.Background(), fastConfig(), "op", always, func() (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" || calls.Load() != 1 {
		t.Errorf("Do() = %q after %d calls, want %q after 1", got, calls.Load(), "ok")
	}
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	got, err := retry.Do(context.Background(), fastConfig(), "op", always, func() (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("503 unavailable")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 42 || calls.Load() != 3 {
		t.Errorf("Do() = %d after %d calls, want 42 after 3", got, calls.Load())
	}
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()
	base := errors.New("429 too many requests")
	var calls atomic.Int32
	_, err := retry.Do(context.Background(), fastConfig(), "compare", always, func() (string, error) {
		calls.Add(1)
		return "", base
	})
	if !errors.Is(err, base) {
		t.Fatalf("Do() error = %v, want wrapping %v", err, base)
	}
	if !strings.HasPrefix(err.Error(), "compare failed after 3 retries") {
		t.Errorf("Do() error = %q, want operation prefix", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
}

func TestDo_PermanentError(t *testing.T) {
	t.Parallel()
	perm := errors.New("404 not found")
	var calls atomic.Int32
	_, err := retry.Do(context.Background(), fastConfig(), "op", never, func() (string, error) {
		calls.Add(1)
		return "", perm
	})
	if err != perm {
		t.Errorf("Do() error = %v, want the unwrapped permanent error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDo_ZeroConfigReturnsOriginalError(t *testing.T) {
	t.Parallel()
	base := errors.New("boom")
	var calls atomic.Int32
	_, err := retry.Do(context.Background(), retry.Config{}, "op", always, func() (string, error) {
		calls.Add(1)
		return "", base
	})
	if err != base {
		t.Errorf("Do() error = %v, want %v", err, base)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.BaseBackoff = time.Minute
	cfg.MaxBackoff = time.Minute

	_, err := retry.Do(ctx, cfg, "op", always, func() (string, error) {
		cancel()
		return "", errors.New("503")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{
		200: false, 400: false, 401: false, 404: false, 409: false,
		429: true, 500: false, 502: true, 503: true, 504: true,
	} {
		if got := retry.IsRetryableStatus(code); got != want {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := retry.ModelConfig().Validate(); err != nil {
		t.Errorf("ModelConfig().Validate() = %v", err)
	}
	if err := retry.ReadConfig().Validate(); err != nil {
		t.Errorf("ReadConfig().Validate() = %v", err)
	}
	if err := (retry.Config{MaxRetries: -1}).Validate(); err == nil {
		t.Error("Validate() accepted negative retries")
	}
	if err := (retry.Config{MaxJitter: -time.Second}).Validate(); err == nil {
		t.Error("Validate() accepted negative jitter")
	}
}
