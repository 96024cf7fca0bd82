/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitlab implements sourcehost.Interface against the GitLab REST API v4.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chainguard.dev/docfixer/agents/retry"
	"chainguard.dev/docfixer/sourcehost"
	"github.com/chainguard-dev/clog"
	gl "gitlab.com/gitlab-org/api/client-go"
)

// DefaultBaseURL is the API root of gitlab.com.
const DefaultBaseURL = "https://gitlab.com/api/v4"

const hostName = "GitLab"

// Client talks to one GitLab instance with a single access token.
type Client struct {
	api   *gl.Client
	retry retry.Config
}

var _ sourcehost.Interface = (*Client)(nil)

type options struct {
	httpClient *http.Client
	retry      retry.Config
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRetry sets the retry policy for read calls.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// New creates a client for the API rooted at baseURL, authenticating with a
// personal, project or group access token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	o := options{retry: retry.ReadConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	// Retries are ours: reads follow o.retry and commits are never repeated.
	clientOpts := []gl.ClientOptionFunc{gl.WithBaseURL(baseURL), gl.WithoutRetries()}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, gl.WithHTTPClient(o.httpClient))
	}
	api, err := gl.NewClient(token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &Client{api: api, retry: o.retry}, nil
}

// Name implements sourcehost.Interface.
func (c *Client) Name() string { return "gitlab" }

// Compare implements sourcehost.Interface.
func (c *Client) Compare(ctx context.Context, repo, from, to string) (*sourcehost.Comparison, error) {
	return retry.Do(ctx, c.retry, "gitlab compare", sourcehost.IsRetryable, func() (*sourcehost.Comparison, error) {
		cmp, _, err := c.api.Repositories.Compare(repo, &gl.CompareOptions{
			From: gl.Ptr(from),
			To:   gl.Ptr(to),
		}, gl.WithContext(ctx))
		if err != nil {
			return nil, hostError(ctx, err)
		}

		out := &sourcehost.Comparison{
			Commits: make([]sourcehost.Commit, 0, len(cmp.Commits)),
			Diffs:   make([]sourcehost.DiffEntry, 0, len(cmp.Diffs)),
		}
		for _, commit := range cmp.Commits {
			out.Commits = append(out.Commits, sourcehost.Commit{ID: commit.ID, Message: commit.Message})
		}
		for _, d := range cmp.Diffs {
			out.Diffs = append(out.Diffs, sourcehost.DiffEntry{
				OldPath:     d.OldPath,
				NewPath:     d.NewPath,
				Diff:        d.Diff,
				NewFile:     d.NewFile,
				RenamedFile: d.RenamedFile,
				DeletedFile: d.DeletedFile,
			})
		}
		return out, nil
	})
}

// FileContent implements sourcehost.Interface.
func (c *Client) FileContent(ctx context.Context, repo, path, ref string) (string, error) {
	return retry.Do(ctx, c.retry, "gitlab file content", sourcehost.IsRetryable, func() (string, error) {
		raw, _, err := c.api.RepositoryFiles.GetRawFile(repo, path, &gl.GetRawFileOptions{
			Ref: gl.Ptr(ref),
		}, gl.WithContext(ctx))
		if err != nil {
			return "", hostError(ctx, err)
		}
		return string(raw), nil
	})
}

// Commit implements sourcehost.Interface. It is never retried.
func (c *Client) Commit(ctx context.Context, repo, branch, message string, actions []sourcehost.CommitAction) (string, error) {
	opts := &gl.CreateCommitOptions{
		Branch:        gl.Ptr(branch),
		CommitMessage: gl.Ptr(message),
		Actions:       make([]*gl.CommitActionOptions, 0, len(actions)),
	}
	for _, a := range actions {
		action, err := fileAction(a.Action)
		if err != nil {
			return "", err
		}
		opts.Actions = append(opts.Actions, &gl.CommitActionOptions{
			Action:   gl.Ptr(action),
			FilePath: gl.Ptr(a.FilePath),
			Content:  a.Content,
		})
	}

	commit, _, err := c.api.Commits.CreateCommit(repo, opts, gl.WithContext(ctx))
	if err != nil {
		return "", hostError(ctx, err)
	}
	return commit.ID, nil
}

func fileAction(a sourcehost.Action) (gl.FileActionValue, error) {
	switch a {
	case sourcehost.ActionCreate:
		return gl.FileCreate, nil
	case sourcehost.ActionUpdate:
		return gl.FileUpdate, nil
	case sourcehost.ActionDelete:
		return gl.FileDelete, nil
	}
	return "", fmt.Errorf("unknown commit action %q", a)
}

// hostError converts client-go API errors into *sourcehost.HostError carrying
// the response body. Transport errors are returned unchanged.
func hostError(ctx context.Context, err error) error {
	var er *gl.ErrorResponse
	if !errors.As(err, &er) || er.Response == nil {
		return err
	}
	clog.FromContext(ctx).With("status", er.Response.StatusCode).
		Debug("GitLab API returned an error")
	return &sourcehost.HostError{Host: hostName, StatusCode: er.Response.StatusCode, Body: string(er.Body)}
}
