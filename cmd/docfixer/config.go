/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Audit backends.
const (
	auditLog    = "log"
	auditSQLite = "sqlite"
	auditGCS    = "gcs"
	auditKafka  = "kafka"
)

type config struct {
	Port        int  `env:"PORT,default=8080"`
	MetricsPort int  `env:"METRICS_PORT,default=2112"`
	DryRun      bool `env:"DRY_RUN,default=false"`

	GitLabAPIURL        string `env:"GITLAB_API_URL,default=https://gitlab.com/api/v4"`
	GitLabToken         string `env:"GITLAB_TOKEN"`
	GitLabWebhookSecret string `env:"GITLAB_WEBHOOK_SECRET"`

	GitHubToken          string `env:"GITHUB_TOKEN"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `env:"GITHUB_APP_PRIVATE_KEY_PATH"`
	GitHubWebhookSecret  string `env:"GITHUB_WEBHOOK_SECRET"`

	EvalBackend          string `env:"EVAL_BACKEND,default=cerebras"`
	EvalModel            string `env:"EVAL_MODEL"`    // Defaults per backend
	EvalBaseURL          string `env:"EVAL_BASE_URL"` // Defaults per backend
	EvalAPIKey           string `env:"EVAL_API_KEY"`
	EvalStructuredOutput bool   `env:"EVAL_STRUCTURED_OUTPUT,default=false"`
	GCPProjectID         string `env:"GCP_PROJECT_ID"` // Defaults to the metadata server
	GCPRegion            string `env:"GCP_REGION,default=us-central1"`

	EvalTimeout      time.Duration `env:"EVAL_TIMEOUT,default=2m"`
	HostTimeout      time.Duration `env:"HOST_TIMEOUT,default=30s"`
	AuditTimeout     time.Duration `env:"AUDIT_TIMEOUT,default=15s"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY,default=8"`

	AuditBackend    string `env:"AUDIT_BACKEND,default=log"`
	AuditSQLitePath string `env:"AUDIT_SQLITE_PATH,default=docfixer-audit.db"`
	AuditBucket     string `env:"AUDIT_BUCKET"`
	AuditPrefix     string `env:"AUDIT_PREFIX,default=agent_actions"`
	KafkaBrokers    string `env:"KAFKA_BROKERS"`
	KafkaTopic      string `env:"KAFKA_TOPIC,default=agent_actions"`
}

// gitlabEnabled reports whether GitLab credentials are configured.
func (c config) gitlabEnabled() bool {
	return c.GitLabToken != ""
}

// githubApp reports whether GitHub App credentials are configured.
func (c config) githubApp() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKeyPath != ""
}

// githubEnabled reports whether any GitHub credential is configured.
func (c config) githubEnabled() bool {
	return c.GitHubToken != "" || c.githubApp()
}

func (c config) validate() error {
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.EvalTimeout <= 0 || c.HostTimeout <= 0 || c.AuditTimeout <= 0 {
		return errors.New("EVAL_TIMEOUT, HOST_TIMEOUT and AUDIT_TIMEOUT must be positive")
	}
	switch c.AuditBackend {
	case auditLog, auditSQLite:
	case auditGCS:
		if c.AuditBucket == "" {
			return errors.New("AUDIT_BUCKET is required for the gcs audit backend")
		}
	case auditKafka:
		if c.KafkaBrokers == "" {
			return errors.New("KAFKA_BROKERS is required for the kafka audit backend")
		}
	default:
		return fmt.Errorf("unknown AUDIT_BACKEND %q", c.AuditBackend)
	}
	return nil
}

// loadConfig reads an optional .env file, then the environment through l.
func loadConfig(ctx context.Context, l envconfig.Lookuper) (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return config{}, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}
