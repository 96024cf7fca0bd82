/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// googleCompleter generates content with Gemini, directly or through Vertex AI.
type googleCompleter struct {
	client     *genai.Client
	model      string
	structured bool
}

func (c *googleCompleter) complete(ctx context.Context, system, user string) (completion, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	if c.structured {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = proposalSchema
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: user}},
	}}, config)
	if err != nil {
		return completion{}, err
	}

	var out completion
	if resp.UsageMetadata != nil {
		out.promptTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.completionTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	out.text = text.String()
	return out, nil
}

// retryable matches rate limit, quota exhaustion and transient server errors.
// The genai SDK does not expose typed status errors for every transport.
func (c *googleCompleter) retryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "server error")
}

// proposalSchema mirrors Proposal in the schema dialect the genai SDK accepts.
var proposalSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"reasoning": {
			Type:        genai.TypeString,
			Description: "Brief explanation of what was found",
		},
		"edits": {
			Type:        genai.TypeArray,
			Description: "Corrected files; empty when nothing needs correction",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"file_path": {Type: genai.TypeString},
					"content":   {Type: genai.TypeString},
				},
				Required: []string{"file_path", "content"},
			},
		},
	},
	Required: []string{"reasoning", "edits"},
}
