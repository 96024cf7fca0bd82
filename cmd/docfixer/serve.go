/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/docfixer/webhook"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Run the webhook server and the Prometheus metrics listener.

Routes:
  /, /webhook/gitlab  GitLab push hooks (GITLAB_TOKEN and GITLAB_WEBHOOK_SECRET)
  /webhook/github     GitHub webhooks (a GitHub credential and GITHUB_WEBHOOK_SECRET)
  /healthz            liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, envconfig.OsLookuper())
			if err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}
}

// routes returns the webhook handlers that have both credentials and a
// webhook secret.
func (a *app) routes() (gitlab, github http.Handler) {
	if a.gitlab != nil && a.cfg.GitLabWebhookSecret != "" {
		gitlab = webhook.NewGitLab(a.gitlab, a.cfg.GitLabWebhookSecret)
	}
	if a.github != nil && a.cfg.GitHubWebhookSecret != "" {
		github = webhook.NewGitHub(a.github, a.cfg.GitHubWebhookSecret)
	}
	return gitlab, github
}

func runServe(ctx context.Context, cfg config) error {
	log := clog.FromContext(ctx)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	gitlab, github := a.routes()
	if gitlab == nil && github == nil {
		return errors.New("no webhook route configured: set GITLAB_TOKEN and GITLAB_WEBHOOK_SECRET, or a GitHub credential and GITHUB_WEBHOOK_SECRET")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           webhook.NewServeMux(gitlab, github),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	metrics := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range []*http.Server{srv, metrics} {
		eg.Go(func() error {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listening on %s: %w", s.Addr, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metrics.Shutdown(shutdownCtx))
	})

	log.With("port", cfg.Port, "metrics_port", cfg.MetricsPort, "dry_run", cfg.DryRun).
		With("gitlab", gitlab != nil, "github", github != nil).
		Info("Starting docfixer")
	return eg.Wait()
}
