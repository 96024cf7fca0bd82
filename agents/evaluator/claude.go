/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// claudeMaxTokens leaves room for several full corrected files.
const claudeMaxTokens = 16384

// claudeCompleter sends messages to Claude, directly or through Vertex AI.
type claudeCompleter struct {
	client anthropic.Client
	model  string
}

func (c *claudeCompleter) complete(ctx context.Context, system, user string) (completion, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: claudeMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return completion{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return completion{
		text:             text.String(),
		promptTokens:     msg.Usage.InputTokens,
		completionTokens: msg.Usage.OutputTokens,
	}, nil
}

// retryable matches rate limiting and overload, including Anthropic's 529.
func (c *claudeCompleter) retryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
