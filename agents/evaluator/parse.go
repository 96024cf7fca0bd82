/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"chainguard.dev/docfixer/agents/result"
)

const (
	// DefaultReasoning stands in for a reply without a string reasoning field.
	DefaultReasoning = "No reasoning provided"

	// MalformedPrefix starts the reasoning of a reply that was not a JSON object.
	MalformedPrefix = "LLM response was not valid JSON: "

	malformedQuoteLen = 200
)

// ParseProposal decodes a model reply. It never fails: a reply that is not a
// JSON object yields a Malformed proposal quoting the first 200 characters of
// the reply. Arrays and null count as not an object, so "[]" is quoted as
// malformed rather than read as an empty proposal; either way nothing is
// committed. Edits lacking a string file_path or content are skipped.
func ParseProposal(text string) *Proposal {
	parsed := result.Parse[map[string]any](text)
	if !parsed.OK() || parsed.Value == nil {
		return &Proposal{
			Reasoning: MalformedPrefix + result.Truncate(parsed.Raw, malformedQuoteLen),
			Edits:     []FileEdit{},
			Malformed: true,
		}
	}
	obj := parsed.Value

	p := &Proposal{Reasoning: DefaultReasoning, Edits: []FileEdit{}}
	if r, ok := obj["reasoning"].(string); ok {
		p.Reasoning = r
	}

	edits, _ := obj["edits"].([]any)
	for _, e := range edits {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		path, ok := m["file_path"].(string)
		if !ok {
			continue
		}
		content, ok := m["content"].(string)
		if !ok {
			continue
		}
		p.Edits = append(p.Edits, FileEdit{FilePath: path, Content: content})
	}
	return p
}
