/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline turns a push event into at most one documentation
// correction commit and one audit record.
//
// Run walks a fixed sequence of states. Events that are not branch pushes,
// branch deletions, and pushes without documentation changes end early as
// Ignored and leave no audit record. Every run that reaches the host writes
// exactly one audit record, whether it succeeds or fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/docfixer/agents/evaluator"
	"chainguard.dev/docfixer/audit"
	"chainguard.dev/docfixer/sourcehost"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
)

// CommitHeadline starts the message of every correction commit.
const CommitHeadline = "docs: auto-correct markdown (docfixer agent)"

// Ignore reasons.
const (
	ReasonNotPush     = "not a push event"
	ReasonDeletion    = "branch deletion"
	ReasonNoDocuments = "no markdown files changed"
)

// Status is the terminal state of a run that did not fail.
type Status string

const (
	StatusIgnored   Status = "ignored"
	StatusProcessed Status = "processed"
)

// Result describes a run that did not fail.
type Result struct {
	Status Status
	// Reason explains an Ignored result.
	Reason string
	// Summary describes a Processed result.
	Summary *Summary
}

// Summary reports what a processed run did.
type Summary struct {
	Evaluated   int     `json:"evaluated"`
	Corrections int     `json:"corrections"`
	CommitID    *string `json:"commitId"`
	Reasoning   string  `json:"reasoning"`

	// Rejected lists edit paths the model returned that were not evaluated.
	Rejected []string `json:"-"`
	DryRun   bool     `json:"-"`
}

// Pipeline reviews documentation changes on one source host.
type Pipeline struct {
	host      sourcehost.Interface
	evaluator evaluator.Interface
	store     audit.Store

	hostTimeout      time.Duration
	evalTimeout      time.Duration
	auditTimeout     time.Duration
	fetchConcurrency int
	dryRun           bool
}

// New creates a pipeline for host.
func New(host sourcehost.Interface, ev evaluator.Interface, store audit.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		host:             host,
		evaluator:        ev,
		store:            store,
		hostTimeout:      DefaultHostTimeout,
		evalTimeout:      DefaultEvalTimeout,
		auditTimeout:     DefaultAuditTimeout,
		fetchConcurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Host returns the name of the pipeline's source host.
func (p *Pipeline) Host() string {
	return p.host.Name()
}

// Run processes ev. Validation failures wrap ErrInvalidEvent and touch
// nothing. Any other error has already been logged and audited.
func (p *Pipeline) Run(ctx context.Context, ev PushEvent) (*Result, error) {
	if ev.Kind != KindPush || ev.IsTag() {
		return ignored(ctx, ReasonNotPush), nil
	}
	if ev.IsDeletion() {
		return ignored(ctx, ReasonDeletion), nil
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	host := p.host.Name()
	log := clog.FromContext(ctx).With("host", host).
		With("repository", ev.Repository).
		With("branch", ev.Branch()).
		With("after", ev.After)
	ctx = clog.WithLogger(ctx, log)

	ctx, span := startSpan(ctx, "pipeline.run",
		attribute.String("host", host),
		attribute.String("repository", ev.Repository),
		attribute.String("branch", ev.Branch()),
		attribute.String("after", ev.After))

	start := time.Now()
	res, rec, err := p.process(ctx, ev)
	endSpan(span, err)

	if err != nil {
		duration.WithLabelValues(host).Observe(time.Since(start).Seconds())
		log.With("error", err.Error()).Error("Pipeline failed")
		p.record(ctx, audit.Record{
			Type:       audit.TypePush,
			Host:       host,
			Repository: ev.Repository,
			Branch:     ev.Branch(),
			Before:     ev.Before,
			After:      ev.After,
			Error:      err.Error(),
		})
		return nil, err
	}
	if res.Status == StatusIgnored {
		return res, nil
	}

	duration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	p.record(ctx, rec)
	return res, nil
}

// process runs the states after validation. The returned record is only
// meaningful for a Processed result.
func (p *Pipeline) process(ctx context.Context, ev PushEvent) (*Result, audit.Record, error) {
	log := clog.FromContext(ctx)
	var rec audit.Record

	cmp, err := step(ctx, "pipeline.compare", p.hostTimeout, func(ctx context.Context) (*sourcehost.Comparison, error) {
		return p.host.Compare(ctx, ev.Repository, ev.Before, ev.After)
	})
	if err != nil {
		return nil, rec, fmt.Errorf("comparing %s...%s: %w", ev.Before, ev.After, err)
	}

	docs := DocumentationDiffs(cmp.Diffs)
	if len(docs) == 0 {
		return ignored(ctx, ReasonNoDocuments), rec, nil
	}

	files, err := step(ctx, "pipeline.snapshots", 0, func(ctx context.Context) ([]evaluator.FileSnapshot, error) {
		return p.fetchSnapshots(ctx, ev.Repository, ev.After, docs)
	})
	if err != nil {
		return nil, rec, err
	}

	proposal, err := step(ctx, "pipeline.evaluate", p.evalTimeout, func(ctx context.Context) (*evaluator.Proposal, error) {
		return p.evaluator.Evaluate(ctx, CombinedDiff(docs), files)
	})
	if err != nil {
		return nil, rec, fmt.Errorf("evaluating: %w", err)
	}

	accepted, rejected := filterEdits(proposal.Edits, files)
	if len(rejected) > 0 {
		log.With("rejected_paths", rejected).Warn("Dropping edits for files that were not evaluated")
	}

	var commitID *string
	switch {
	case len(accepted) == 0:
		log.Info("No corrections proposed")
	case p.dryRun:
		log.With("edits", len(accepted)).Info("Dry run, skipping commit")
	default:
		actions := make([]sourcehost.CommitAction, 0, len(accepted))
		for _, e := range accepted {
			actions = append(actions, sourcehost.UpdateAction(e.FilePath, e.Content))
		}
		id, err := step(ctx, "pipeline.commit", p.hostTimeout, func(ctx context.Context) (string, error) {
			return p.host.Commit(ctx, ev.Repository, ev.Branch(), CommitMessage(proposal.Reasoning), actions)
		})
		if err != nil {
			return nil, rec, fmt.Errorf("committing corrections: %w", err)
		}
		commitID = &id
		corrections.WithLabelValues(p.host.Name()).Add(float64(len(accepted)))
		log.With("commit", id).With("edits", len(accepted)).Info("Committed corrections")
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	rec = audit.Record{
		Type:           audit.TypePush,
		Host:           p.host.Name(),
		Repository:     ev.Repository,
		Branch:         ev.Branch(),
		Before:         ev.Before,
		After:          ev.After,
		FilesEvaluated: paths,
		EditsApplied:   len(accepted),
		RejectedPaths:  rejected,
		Reasoning:      proposal.Reasoning,
		CommitID:       commitID,
		DryRun:         p.dryRun,
	}
	return &Result{
		Status: StatusProcessed,
		Summary: &Summary{
			Evaluated:   len(files),
			Corrections: len(accepted),
			CommitID:    commitID,
			Reasoning:   proposal.Reasoning,
			Rejected:    rejected,
			DryRun:      p.dryRun,
		},
	}, rec, nil
}

// CommitMessage is the message of a correction commit carrying reasoning.
func CommitMessage(reasoning string) string {
	return CommitHeadline + "\n\n" + reasoning
}

// filterEdits splits edits into those for evaluated files and the paths of the rest.
func filterEdits(edits []evaluator.FileEdit, files []evaluator.FileSnapshot) ([]evaluator.FileEdit, []string) {
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f.Path] = struct{}{}
	}
	var (
		accepted []evaluator.FileEdit
		rejected []string
	)
	for _, e := range edits {
		if _, ok := known[e.FilePath]; ok {
			accepted = append(accepted, e)
		} else {
			rejected = append(rejected, e.FilePath)
		}
	}
	return accepted, rejected
}

// record appends r to the audit store. Failures are logged only, since the
// run's outcome, including any commit, already happened.
func (p *Pipeline) record(ctx context.Context, r audit.Record) {
	ctx = context.WithoutCancel(ctx)
	if p.auditTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.auditTimeout)
		defer cancel()
	}
	stored, err := p.store.Append(ctx, r)
	if err != nil {
		clog.FromContext(ctx).With("error", err.Error()).Error("Failed to write audit record")
		return
	}
	clog.FromContext(ctx).With("audit_id", stored.ID).Debug("Wrote audit record")
}

func ignored(ctx context.Context, reason string) *Result {
	clog.FromContext(ctx).With("reason", reason).Info("Ignoring event")
	return &Result{Status: StatusIgnored, Reason: reason}
}

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidEvent)
}
