/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sourcehost defines the contract between the correction pipeline and
// a source-control host: comparing revisions, reading files at a revision, and
// committing a batch of file changes as one atomic commit.
package sourcehost

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/docfixer/agents/retry"
)

// Interface is implemented by each supported source-control host.
// Compare and FileContent are reads against immutable revisions. Commit is not
// idempotent: calling it twice creates two commits.
type Interface interface {
	// Name identifies the host in logs, metrics and audit records.
	Name() string

	// Compare returns the commits and per-file diffs between two revisions.
	Compare(ctx context.Context, repo, from, to string) (*Comparison, error)

	// FileContent returns the raw content of path at ref.
	FileContent(ctx context.Context, repo, path, ref string) (string, error)

	// Commit applies actions to branch as a single commit and returns its id.
	Commit(ctx context.Context, repo, branch, message string, actions []CommitAction) (string, error)
}

// Commit is a commit listed by a comparison.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// DiffEntry is the diff of a single file between two revisions.
type DiffEntry struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// Comparison is the result of comparing two revisions.
type Comparison struct {
	Commits []Commit    `json:"commits"`
	Diffs   []DiffEntry `json:"diffs"`
}

// Action is the kind of change a CommitAction applies.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CommitAction is one file change within a commit. Content is nil for deletions.
type CommitAction struct {
	Action   Action  `json:"action"`
	FilePath string  `json:"file_path"`
	Content  *string `json:"content,omitempty"`
}

// UpdateAction returns an update of path to content.
func UpdateAction(path, content string) CommitAction {
	return CommitAction{Action: ActionUpdate, FilePath: path, Content: &content}
}

// HostError is a non-success response from a host API.
type HostError struct {
	Host       string
	StatusCode int
	Body       string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s API %d: %s", e.Host, e.StatusCode, e.Body)
}

// IsRetryable reports whether err is a HostError with a transient status code.
func IsRetryable(err error) bool {
	var he *HostError
	return errors.As(err, &he) && retry.IsRetryableStatus(he.StatusCode)
}
