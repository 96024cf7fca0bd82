/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"context"
	"errors"

	"chainguard.dev/docfixer/agents/retry"
	"github.com/openai/openai-go"
)

// openAICompleter sends chat completions to any OpenAI-compatible endpoint.
type openAICompleter struct {
	client openai.Client
	model  string
	// schema constrains the reply when the endpoint supports structured output.
	schema map[string]any
}

func (c *openAICompleter) complete(ctx context.Context, system, user string) (completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if c.schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "correction_proposal",
					Schema: c.schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return completion{}, err
	}

	out := completion{
		promptTokens:     resp.Usage.PromptTokens,
		completionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.text = resp.Choices[0].Message.Content
	}
	return out, nil
}

func (c *openAICompleter) retryable(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retry.IsRetryableStatus(apiErr.StatusCode)
}
