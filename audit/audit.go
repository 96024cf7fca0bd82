/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package audit defines the durable record written for every push the
// pipeline processes, and the stores that persist it.
package audit

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// TypePush tags records produced by push events.
const TypePush = "push"

// Record is one processed push. A failed run carries Error and none of the
// outcome fields.
type Record struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Host           string    `json:"host"`
	Repository     string    `json:"repository"`
	Branch         string    `json:"branch"`
	Before         string    `json:"before,omitempty"`
	After          string    `json:"after,omitempty"`
	FilesEvaluated []string  `json:"files_evaluated,omitempty"`
	EditsApplied   int       `json:"edits_applied"`
	RejectedPaths  []string  `json:"rejected_paths,omitempty"`
	Reasoning      string    `json:"reasoning,omitempty"`
	CommitID       *string   `json:"commit_id"`
	DryRun         bool      `json:"dry_run,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Failed reports whether the record describes a failed run.
func (r Record) Failed() bool {
	return r.Error != ""
}

// Store appends records. Implementations assign ID and Timestamp at write
// time and return the record as stored.
type Store interface {
	Append(ctx context.Context, r Record) (Record, error)
}

// Stamp assigns a fresh ID and the current UTC time to r.
func Stamp(r Record) Record {
	r.ID = uuid.NewString()
	r.Timestamp = time.Now().UTC()
	return r
}

// LogStore writes records to the structured log only.
type LogStore struct{}

var _ Store = LogStore{}

// Append implements Store.
func (LogStore) Append(ctx context.Context, r Record) (Record, error) {
	r = Stamp(r)
	log := clog.FromContext(ctx).With("audit_id", r.ID).
		With("type", r.Type).
		With("host", r.Host).
		With("repository", r.Repository).
		With("branch", r.Branch)
	if r.Failed() {
		log.With("error", r.Error).Warn("Audit: push failed")
		return r, nil
	}

	commit := ""
	if r.CommitID != nil {
		commit = *r.CommitID
	}
	log.With("before", r.Before).
		With("after", r.After).
		With("files_evaluated", r.FilesEvaluated).
		With("edits_applied", r.EditsApplied).
		With("rejected_paths", r.RejectedPaths).
		With("commit_id", commit).
		With("dry_run", r.DryRun).
		With("reasoning", r.Reasoning).
		Info("Audit: push processed")
	return r, nil
}
