/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package webhook

import (
	"fmt"
	"io"
	"net/http"

	"chainguard.dev/docfixer/pipeline"
	gh "github.com/google/go-github/v84/github"
)

type githubHandler struct {
	runner Runner
	secret []byte
}

// NewGitHub returns the handler for GitHub webhooks signed with secret.
// Events other than push are acknowledged and ignored.
func NewGitHub(runner Runner, secret string) http.Handler {
	return &githubHandler{runner: runner, secret: []byte(secret)}
}

func (h *githubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := h.runner.Host()
	if r.Method != http.MethodPost {
		reject(w, host, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		reject(w, host, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	kind := gh.WebHookType(r)
	if kind != pipeline.KindPush {
		dispatch(w, r, h.runner, pipeline.PushEvent{Kind: kind})
		return
	}

	ev, err := decodeGitHubPush(payload)
	if err != nil {
		reject(w, host, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	dispatch(w, r, h.runner, ev)
}

// DecodeGitHub decodes a GitHub push event payload. Signature validation is
// the caller's concern.
func DecodeGitHub(r io.Reader) (pipeline.PushEvent, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return pipeline.PushEvent{}, fmt.Errorf("reading github payload: %w", err)
	}
	return decodeGitHubPush(payload)
}

func decodeGitHubPush(payload []byte) (pipeline.PushEvent, error) {
	parsed, err := gh.ParseWebHook(pipeline.KindPush, payload)
	if err != nil {
		return pipeline.PushEvent{}, fmt.Errorf("decoding github payload: %w", err)
	}
	push, ok := parsed.(*gh.PushEvent)
	if !ok {
		return pipeline.PushEvent{}, fmt.Errorf("unexpected github payload type %T", parsed)
	}
	return pipeline.PushEvent{
		Kind:       pipeline.KindPush,
		Repository: push.GetRepo().GetFullName(),
		Ref:        push.GetRef(),
		Before:     push.GetBefore(),
		After:      push.GetAfter(),
	}, nil
}
