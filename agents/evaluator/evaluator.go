/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"context"
	"fmt"

	"chainguard.dev/docfixer/agents/metrics"
	"chainguard.dev/docfixer/agents/retry"
	"github.com/chainguard-dev/clog"
)

// Interface evaluates documentation changes.
type Interface interface {
	// Evaluate sends diff and the full content of the changed files to the model.
	// Only transport failures are returned as errors.
	Evaluate(ctx context.Context, diff string, files []FileSnapshot) (*Proposal, error)
}

// FileSnapshot is the full content of a file at the pushed revision.
type FileSnapshot struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileEdit replaces the whole content of a file.
type FileEdit struct {
	FilePath string `json:"file_path" jsonschema:"description=Path of the file to replace, exactly as given in the file contents section"`
	Content  string `json:"content" jsonschema:"description=The full corrected file content, not a patch"`
}

// Proposal is the model's verdict on a diff.
type Proposal struct {
	Reasoning string     `json:"reasoning" jsonschema:"description=Brief explanation of what was found"`
	Edits     []FileEdit `json:"edits" jsonschema:"description=Corrected files; empty when nothing needs correction"`

	// Malformed is set when the reply could not be decoded. Edits is then empty.
	Malformed bool `json:"-"`
}

// completion is one model reply with its token usage.
type completion struct {
	text             string
	promptTokens     int64
	completionTokens int64
}

// completer is the transport of one backend.
type completer interface {
	complete(ctx context.Context, system, user string) (completion, error)
	retryable(err error) bool
}

// evaluator implements Interface over any completer.
type evaluator struct {
	backend   string
	model     string
	completer completer
	retry     retry.Config
	genai     *metrics.GenAI
}

var _ Interface = (*evaluator)(nil)

// Evaluate implements Interface.
func (e *evaluator) Evaluate(ctx context.Context, diff string, files []FileSnapshot) (*Proposal, error) {
	user, err := renderUserPrompt(diff, files)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	log := clog.FromContext(ctx).With("backend", e.backend).With("model", e.model)

	c, err := retry.Do(ctx, e.retry, e.backend+" completion", e.completer.retryable, func() (completion, error) {
		return e.completer.complete(ctx, systemPrompt, user)
	})
	if err != nil {
		return nil, fmt.Errorf("%s evaluation: %w", e.backend, err)
	}
	e.genai.RecordTokens(ctx, e.backend, e.model, c.promptTokens, c.completionTokens)

	p := ParseProposal(c.text)
	if p.Malformed {
		log.Warn("Model reply was not a JSON object, treating as no corrections")
	} else {
		log.With("edits", len(p.Edits)).Info("Model proposal received")
	}
	return p, nil
}
