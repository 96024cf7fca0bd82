/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluator asks a language model whether documentation touched by a
// diff is stale, and parses the model's correction proposal.
//
// Every backend sends the same two-message prompt and decodes the reply with
// ParseProposal, so backends differ only in transport and model.
//
// # Degrade-to-safe parsing
//
// A reply that is not a JSON object never becomes an error. Evaluate returns
// a Proposal with no edits, Malformed set, and a Reasoning that quotes the
// start of the reply:
//
//	p, err := ev.Evaluate(ctx, diff, files)
//	if err != nil {
//	    // transport failure after retries
//	}
//	if p.Malformed {
//	    // nothing to commit; p.Reasoning explains why
//	}
//
// # Backends
//
// New selects a backend from Config.Backend:
//
//   - cerebras, deepinfra, openai: OpenAI-compatible chat completions
//   - claude: Anthropic Messages API, directly or through Vertex AI
//   - gemini: Gemini API, directly or through Vertex AI
package evaluator
