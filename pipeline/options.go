/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import "time"

const (
	// DefaultHostTimeout bounds each source host call.
	DefaultHostTimeout = 30 * time.Second
	// DefaultEvalTimeout bounds the evaluation call, retries included.
	DefaultEvalTimeout = 2 * time.Minute
	// DefaultAuditTimeout bounds the audit write at the end of a run.
	DefaultAuditTimeout = 15 * time.Second
	// DefaultFetchConcurrency bounds concurrent snapshot fetches.
	DefaultFetchConcurrency = 8
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHostTimeout bounds each source host call. Zero disables the bound.
func WithHostTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.hostTimeout = d }
}

// WithEvalTimeout bounds the evaluation call. Zero disables the bound.
func WithEvalTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.evalTimeout = d }
}

// WithAuditTimeout bounds the audit write. Zero disables the bound.
func WithAuditTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.auditTimeout = d }
}

// WithFetchConcurrency bounds concurrent snapshot fetches. Values below one mean one.
func WithFetchConcurrency(n int) Option {
	return func(p *Pipeline) { p.fetchConcurrency = max(n, 1) }
}

// WithDryRun evaluates without committing. Summaries still report the
// corrections that would have been committed.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) { p.dryRun = dryRun }
}
