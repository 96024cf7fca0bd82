/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chainguard.dev/docfixer/agents/evaluator"
	"chainguard.dev/docfixer/audit"
	"chainguard.dev/docfixer/audit/gcsstore"
	"chainguard.dev/docfixer/audit/kafkastore"
	"chainguard.dev/docfixer/audit/sqlitestore"
	"chainguard.dev/docfixer/pipeline"
	"chainguard.dev/docfixer/sourcehost/github"
	"chainguard.dev/docfixer/sourcehost/gitlab"
	"github.com/chainguard-dev/clog"
)

// app holds everything built from the configuration. It is created once per
// process and shared by reference.
type app struct {
	cfg     config
	gitlab  *pipeline.Pipeline
	github  *pipeline.Pipeline
	closers []io.Closer
}

func newApp(ctx context.Context, cfg config) (*app, error) {
	log := clog.FromContext(ctx)
	a := &app{cfg: cfg}

	store, closer, err := newAuditStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	log.With("backend", cfg.EvalBackend, "model", cfg.EvalModel).Info("Initializing evaluator")
	ev, err := evaluator.New(ctx, evaluator.Config{
		Backend:          cfg.EvalBackend,
		Model:            cfg.EvalModel,
		BaseURL:          cfg.EvalBaseURL,
		APIKey:           cfg.EvalAPIKey,
		StructuredOutput: cfg.EvalStructuredOutput,
		ProjectID:        cfg.GCPProjectID,
		Region:           cfg.GCPRegion,
	})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("creating evaluator: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithHostTimeout(cfg.HostTimeout),
		pipeline.WithEvalTimeout(cfg.EvalTimeout),
		pipeline.WithAuditTimeout(cfg.AuditTimeout),
		pipeline.WithFetchConcurrency(cfg.FetchConcurrency),
		pipeline.WithDryRun(cfg.DryRun),
	}

	if cfg.gitlabEnabled() {
		client, err := gitlab.New(cfg.GitLabAPIURL, cfg.GitLabToken)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		log.With("url", cfg.GitLabAPIURL).Info("Configuring GitLab")
		a.gitlab = pipeline.New(client, ev, store, opts...)
	}
	if cfg.githubEnabled() {
		client, err := newGitHubClient(ctx, cfg)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		log.With("app", cfg.githubApp()).Info("Configuring GitHub")
		a.github = pipeline.New(client, ev, store, opts...)
	}
	return a, nil
}

func newGitHubClient(ctx context.Context, cfg config) (*github.Client, error) {
	if cfg.githubApp() {
		hc, err := github.AppHTTPClient(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("creating github app client: %w", err)
		}
		return github.New(hc), nil
	}
	return github.New(github.TokenHTTPClient(ctx, cfg.GitHubToken)), nil
}

// newAuditStore returns the configured store and, when it holds resources,
// the closer that releases them.
func newAuditStore(ctx context.Context, cfg config) (audit.Store, io.Closer, error) {
	switch cfg.AuditBackend {
	case auditSQLite:
		s, err := sqlitestore.Open(cfg.AuditSQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite audit log: %w", err)
		}
		return s, s, nil
	case auditGCS:
		s, err := gcsstore.New(ctx, cfg.AuditBucket, cfg.AuditPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gcs audit log: %w", err)
		}
		return s, s, nil
	case auditKafka:
		s, err := kafkastore.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("creating kafka audit log: %w", err)
		}
		return s, s, nil
	case auditLog:
		return audit.LogStore{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.AuditBackend)
	}
}

// pipelineFor returns the pipeline for a host name.
func (a *app) pipelineFor(host string) (*pipeline.Pipeline, error) {
	var p *pipeline.Pipeline
	switch host {
	case "gitlab":
		p = a.gitlab
	case "github":
		p = a.github
	default:
		return nil, fmt.Errorf("unknown host %q: must be gitlab or github", host)
	}
	if p == nil {
		return nil, fmt.Errorf("no credentials configured for %s", host)
	}
	return p, nil
}

func (a *app) close(ctx context.Context) {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if err := errors.Join(errs...); err != nil {
		clog.FromContext(ctx).With("error", err.Error()).Warn("Failed to close audit log")
	}
}
