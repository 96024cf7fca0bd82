/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chainguard.dev/docfixer/agents/metrics"
	"chainguard.dev/docfixer/agents/retry"
	"chainguard.dev/docfixer/agents/schema"
	"cloud.google.com/go/compute/metadata"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Supported backends.
const (
	BackendCerebras  = "cerebras"
	BackendDeepInfra = "deepinfra"
	BackendOpenAI    = "openai"
	BackendClaude    = "claude"
	BackendGemini    = "gemini"
)

type backendDefaults struct {
	baseURL string
	model   string
}

var defaults = map[string]backendDefaults{
	BackendCerebras:  {baseURL: "https://api.cerebras.ai/v1", model: "gpt-oss-120b"},
	BackendDeepInfra: {baseURL: "https://api.deepinfra.com/v1/openai", model: "openai/gpt-oss-120b"},
	BackendOpenAI:    {model: "gpt-4.1"},
	BackendClaude:    {model: "claude-sonnet-4-5"},
	BackendGemini:    {model: "gemini-2.5-flash"},
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of the Backend constants.
	Backend string
	// Model overrides the backend's default model.
	Model string
	// BaseURL overrides the endpoint of OpenAI-compatible backends.
	BaseURL string
	// APIKey authenticates with the provider. Claude and Gemini fall back to
	// Vertex AI with Application Default Credentials when it is empty.
	APIKey string
	// StructuredOutput constrains replies with a JSON schema where the backend supports it.
	StructuredOutput bool
	// ProjectID and Region locate Vertex AI. ProjectID is read from the
	// metadata server when empty.
	ProjectID string
	Region    string
}

// Option tunes an evaluator beyond its Config.
type Option func(*options)

type options struct {
	retry      retry.Config
	httpClient *http.Client
}

// WithRetry sets the retry policy for model calls.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// WithHTTPClient sets the HTTP client of API-key backends.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New constructs the evaluator named by cfg.Backend.
func New(ctx context.Context, cfg Config, opts ...Option) (Interface, error) {
	d, ok := defaults[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown evaluation backend %q", cfg.Backend)
	}
	o := options{retry: retry.ModelConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = d.model
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = d.baseURL
	}

	var (
		c   completer
		err error
	)
	switch cfg.Backend {
	case BackendCerebras, BackendDeepInfra, BackendOpenAI:
		c, err = newOpenAICompleter(cfg, model, baseURL, o.httpClient)
	case BackendClaude:
		c, err = newClaudeCompleter(ctx, cfg, model, o.httpClient)
	case BackendGemini:
		c, err = newGoogleCompleter(ctx, cfg, model, o.httpClient)
	}
	if err != nil {
		return nil, err
	}

	clog.FromContext(ctx).With("backend", cfg.Backend).
		With("model", model).
		Info("Configured evaluation backend")

	return &evaluator{
		backend:   cfg.Backend,
		model:     model,
		completer: c,
		retry:     o.retry,
		genai:     metrics.NewGenAI(metrics.MeterName),
	}, nil
}

func newOpenAICompleter(cfg Config, model, baseURL string, hc *http.Client) (*openAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s backend requires an API key", cfg.Backend)
	}
	// Retries are driven by Evaluate.
	reqOpts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, openaioption.WithBaseURL(baseURL))
	}
	if hc != nil {
		reqOpts = append(reqOpts, openaioption.WithHTTPClient(hc))
	}

	c := &openAICompleter{client: openai.NewClient(reqOpts...), model: model}
	if cfg.StructuredOutput {
		s, err := schema.MapOf[Proposal]()
		if err != nil {
			return nil, fmt.Errorf("building response schema: %w", err)
		}
		c.schema = s
	}
	return c, nil
}

func newClaudeCompleter(ctx context.Context, cfg Config, model string, hc *http.Client) (*claudeCompleter, error) {
	reqOpts := []anthropicoption.RequestOption{anthropicoption.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, anthropicoption.WithAPIKey(cfg.APIKey))
		if hc != nil {
			reqOpts = append(reqOpts, anthropicoption.WithHTTPClient(hc))
		}
	} else {
		projectID, err := vertexProject(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		reqOpts = append(reqOpts, vertex.WithGoogleAuth(ctx, cfg.Region, projectID))
	}
	return &claudeCompleter{client: anthropic.NewClient(reqOpts...), model: model}, nil
}

func newGoogleCompleter(ctx context.Context, cfg Config, model string, hc *http.Client) (*googleCompleter, error) {
	cc := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
		cc.HTTPClient = hc
	} else {
		projectID, err := vertexProject(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		cc.Project = projectID
		cc.Location = cfg.Region
		cc.Backend = genai.BackendVertexAI
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &googleCompleter{client: client, model: model, structured: cfg.StructuredOutput}, nil
}

// vertexProject returns projectID, or the project of the metadata server when empty.
func vertexProject(ctx context.Context, projectID string) (string, error) {
	if projectID != "" {
		return projectID, nil
	}
	if !metadata.OnGCE() {
		return "", errors.New("no API key and no GCP project: set an API key or GCP_PROJECT_ID")
	}
	id, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("detecting project ID: %w", err)
	}
	clog.FromContext(ctx).With("project_id", id).Info("Detected Google Cloud project")
	return id, nil
}
