/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chainguard.dev/docfixer/pipeline"
)

// GitLabTokenHeader carries the secret token configured on a GitLab webhook.
const GitLabTokenHeader = "X-Gitlab-Token"

// gitlabPush is the subset of a GitLab push hook payload the pipeline uses.
type gitlabPush struct {
	ObjectKind string `json:"object_kind"`
	Before     string `json:"before"`
	After      string `json:"after"`
	Ref        string `json:"ref"`
	ProjectID  int64  `json:"project_id"`
	Project    struct {
		ID int64 `json:"id"`
	} `json:"project"`
}

func (p gitlabPush) event() pipeline.PushEvent {
	id := p.Project.ID
	if id == 0 {
		id = p.ProjectID
	}
	ev := pipeline.PushEvent{
		Kind:   p.ObjectKind,
		Before: p.Before,
		After:  p.After,
		Ref:    p.Ref,
	}
	if id != 0 {
		ev.Repository = strconv.FormatInt(id, 10)
	}
	return ev
}

type gitlabHandler struct {
	runner Runner
	secret []byte
}

// NewGitLab returns the handler for GitLab push hooks authenticated by secret.
func NewGitLab(runner Runner, secret string) http.Handler {
	return &gitlabHandler{runner: runner, secret: []byte(secret)}
}

func (h *gitlabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := h.runner.Host()
	if r.Method != http.MethodPost {
		reject(w, host, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.Header.Get(GitLabTokenHeader)), h.secret) != 1 {
		reject(w, host, "Invalid webhook token", http.StatusUnauthorized)
		return
	}

	ev, err := DecodeGitLab(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		reject(w, host, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	dispatch(w, r, h.runner, ev)
}

// DecodeGitLab decodes a GitLab push hook payload.
func DecodeGitLab(r io.Reader) (pipeline.PushEvent, error) {
	var payload gitlabPush
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return pipeline.PushEvent{}, fmt.Errorf("decoding gitlab payload: %w", err)
	}
	return payload.event(), nil
}
