/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package webhook receives push deliveries from source hosts, authenticates
// them, and hands them to a pipeline.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"chainguard.dev/docfixer/pipeline"
	"github.com/chainguard-dev/clog"
)

// maxPayloadBytes bounds the size of a delivery body.
const maxPayloadBytes = 25 << 20

// Runner runs the pipeline for one decoded event.
type Runner interface {
	Host() string
	Run(ctx context.Context, ev pipeline.PushEvent) (*pipeline.Result, error)
}

// NewServeMux routes deliveries to the configured hosts. A nil handler
// leaves its route unmounted.
func NewServeMux(gitlab, github http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if gitlab != nil {
		mux.Handle("/", gitlab)
		mux.Handle("/webhook/gitlab", gitlab)
	}
	if github != nil {
		mux.Handle("/webhook/github", github)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type ignoredBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// dispatch runs ev and writes the response matching its outcome. The run is
// detached from the request, so a sender that stops waiting does not abandon
// a commit in flight; the pipeline's own deadlines bound it.
func dispatch(w http.ResponseWriter, r *http.Request, runner Runner, ev pipeline.PushEvent) {
	ctx := context.WithoutCancel(r.Context())
	host := runner.Host()

	res, err := runner.Run(ctx, ev)
	switch {
	case pipeline.IsInvalid(err):
		pipeline.ObserveDelivery(host, pipeline.OutcomeRejected)
		clog.FromContext(ctx).With("error", err.Error()).Warn("Rejected delivery")
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		pipeline.ObserveDelivery(host, pipeline.OutcomeFailed)
		http.Error(w, "Internal error: "+err.Error(), http.StatusInternalServerError)
	case res.Status == pipeline.StatusIgnored:
		pipeline.ObserveDelivery(host, pipeline.OutcomeIgnored)
		writeJSON(ctx, w, ignoredBody{Status: string(pipeline.StatusIgnored), Reason: res.Reason})
	default:
		pipeline.ObserveDelivery(host, pipeline.OutcomeProcessed)
		writeJSON(ctx, w, res.Summary)
	}
}

// reject answers a delivery that failed a check before decoding.
func reject(w http.ResponseWriter, host, msg string, code int) {
	pipeline.ObserveDelivery(host, pipeline.OutcomeRejected)
	http.Error(w, msg, code)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		clog.FromContext(ctx).With("error", err.Error()).Warn("Failed to write response")
	}
}
