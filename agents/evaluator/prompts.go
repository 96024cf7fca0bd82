/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"strings"

	"chainguard.dev/docfixer/agents/promptbuilder"
)

const systemPrompt = `You are a documentation reviewer. You receive a git diff and the current content of changed markdown files. Your job is to identify stale, incorrect, or inconsistent documentation and suggest corrections.

Respond with JSON only. Format:
{
  "reasoning": "Brief explanation of what you found",
  "edits": [
    { "file_path": "path/to/file.md", "content": "full corrected file content" }
  ]
}

If nothing needs correction, return: { "reasoning": "No issues found", "edits": [] }

Rules:
- Only fix real problems: broken references, stale info, factual errors, inconsistencies with the diff
- Do NOT reformat, restyle, or make cosmetic changes
- Return the FULL corrected file content for each edit, not a patch`

var userPrompt = promptbuilder.MustNewPrompt("## Git Diff\n\n```diff\n{{diff}}\n```\n\n## Current File Contents\n\n{{files}}")

// renderUserPrompt embeds the fenced diff and every file prefixed by a path marker.
func renderUserPrompt(diff string, files []FileSnapshot) (string, error) {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		sections = append(sections, "--- "+f.Path+" ---\n"+f.Content)
	}

	p, err := userPrompt.BindText("diff", diff)
	if err != nil {
		return "", err
	}
	p, err = p.BindText("files", strings.Join(sections, "\n\n"))
	if err != nil {
		return "", err
	}
	return p.Build()
}
