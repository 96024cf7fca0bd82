/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package github implements sourcehost.Interface against GitHub.
//
// Comparisons and file reads use the REST API. Corrections are committed with
// the GraphQL createCommitOnBranch mutation, which applies every file change
// in one commit and refuses to commit when the branch head moved since it was
// read.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"chainguard.dev/docfixer/agents/retry"
	"chainguard.dev/docfixer/sourcehost"
	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

const hostName = "GitHub"

// Client talks to GitHub on behalf of a single identity.
type Client struct {
	rest  *gh.Client
	gql   *githubv4.Client
	retry retry.Config
}

var _ sourcehost.Interface = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetry sets the retry policy for read calls.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithGraphQLURL points the GraphQL client at a GitHub Enterprise endpoint.
func WithGraphQLURL(endpoint string, hc *http.Client) Option {
	return func(c *Client) { c.gql = githubv4.NewEnterpriseClient(endpoint, hc) }
}

// New creates a client whose requests are authenticated by hc's transport.
func New(hc *http.Client, opts ...Option) *Client {
	c := &Client{
		rest:  gh.NewClient(hc),
		gql:   githubv4.NewClient(hc),
		retry: retry.ReadConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements sourcehost.Interface.
func (c *Client) Name() string { return "github" }

// Compare implements sourcehost.Interface.
func (c *Client) Compare(ctx context.Context, repo, from, to string) (*sourcehost.Comparison, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	return retry.Do(ctx, c.retry, "github compare", sourcehost.IsRetryable, func() (*sourcehost.Comparison, error) {
		comparison, _, err := c.rest.Repositories.CompareCommits(ctx, owner, name, from, to, &gh.ListOptions{PerPage: 100})
		if err != nil {
			return nil, hostError(err)
		}

		out := &sourcehost.Comparison{
			Commits: make([]sourcehost.Commit, 0, len(comparison.Commits)),
			Diffs:   make([]sourcehost.DiffEntry, 0, len(comparison.Files)),
		}
		for _, commit := range comparison.Commits {
			out.Commits = append(out.Commits, sourcehost.Commit{
				ID:      commit.GetSHA(),
				Message: commit.GetCommit().GetMessage(),
			})
		}
		for _, f := range comparison.Files {
			out.Diffs = append(out.Diffs, diffEntry(f))
		}
		return out, nil
	})
}

func diffEntry(f *gh.CommitFile) sourcehost.DiffEntry {
	entry := sourcehost.DiffEntry{
		OldPath: f.GetFilename(),
		NewPath: f.GetFilename(),
		Diff:    f.GetPatch(),
	}
	switch f.GetStatus() {
	case "added":
		entry.NewFile = true
	case "removed":
		entry.DeletedFile = true
	case "renamed":
		entry.RenamedFile = true
		entry.OldPath = f.GetPreviousFilename()
	}
	return entry
}

// FileContent implements sourcehost.Interface.
func (c *Client) FileContent(ctx context.Context, repo, path, ref string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	return retry.Do(ctx, c.retry, "github file content", sourcehost.IsRetryable, func() (string, error) {
		file, _, _, err := c.rest.Repositories.GetContents(ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: ref})
		if err != nil {
			return "", hostError(err)
		}
		if file == nil {
			return "", fmt.Errorf("%s is a directory at %s", path, ref)
		}
		content, err := file.GetContent()
		if err != nil {
			return "", fmt.Errorf("decoding %s: %w", path, err)
		}
		return content, nil
	})
}

// Commit implements sourcehost.Interface. The first line of message becomes
// the commit headline and the remainder its body.
func (c *Client) Commit(ctx context.Context, repo, branch, message string, actions []sourcehost.CommitAction) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	ref, _, err := c.rest.Git.GetRef(ctx, owner, name, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("reading head of %s: %w", branch, hostError(err))
	}
	head := ref.GetObject().GetSHA()

	additions := []githubv4.FileAddition{}
	deletions := []githubv4.FileDeletion{}
	for _, a := range actions {
		switch a.Action {
		case sourcehost.ActionCreate, sourcehost.ActionUpdate:
			if a.Content == nil {
				return "", fmt.Errorf("%s action for %s has no content", a.Action, a.FilePath)
			}
			additions = append(additions, githubv4.FileAddition{
				Path:     githubv4.String(a.FilePath),
				Contents: githubv4.Base64String(encodeBase64(*a.Content)),
			})
		case sourcehost.ActionDelete:
			deletions = append(deletions, githubv4.FileDeletion{Path: githubv4.String(a.FilePath)})
		default:
			return "", fmt.Errorf("unknown commit action %q", a.Action)
		}
	}

	headline, body, _ := strings.Cut(message, "\n")
	msg := githubv4.CommitMessage{Headline: githubv4.String(headline)}
	if body = strings.TrimSpace(body); body != "" {
		msg.Body = githubv4.NewString(githubv4.String(body))
	}

	var mutation struct {
		CreateCommitOnBranch struct {
			Commit struct {
				Oid githubv4.GitObjectID
			}
		} `graphql:"createCommitOnBranch(input: $input)"`
	}
	input := githubv4.CreateCommitOnBranchInput{
		Branch: githubv4.CommittableBranch{
			RepositoryNameWithOwner: githubv4.NewString(githubv4.String(repo)),
			BranchName:              githubv4.NewString(githubv4.String(branch)),
		},
		Message:         msg,
		ExpectedHeadOid: githubv4.GitObjectID(head),
		FileChanges: &githubv4.FileChanges{
			Additions: &additions,
			Deletions: &deletions,
		},
	}
	if err := c.gql.Mutate(ctx, &mutation, input, nil); err != nil {
		return "", fmt.Errorf("creating commit on %s: %w", branch, graphQLError(err))
	}

	id := string(mutation.CreateCommitOnBranch.Commit.Oid)
	clog.FromContext(ctx).With("commit", id).
		With("parent", head).
		Info("Created commit on branch")
	return id, nil
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository %q is not of the form owner/name", repo)
	}
	return owner, name, nil
}

// hostError converts go-github API errors into *sourcehost.HostError.
// Transport errors are returned unchanged.
func hostError(err error) error {
	var (
		er  *gh.ErrorResponse
		rle *gh.RateLimitError
		are *gh.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &er) && er.Response != nil:
		return &sourcehost.HostError{Host: hostName, StatusCode: er.Response.StatusCode, Body: er.Message}
	case errors.As(err, &rle) && rle.Response != nil:
		return &sourcehost.HostError{Host: hostName, StatusCode: http.StatusTooManyRequests, Body: rle.Message}
	case errors.As(err, &are) && are.Response != nil:
		return &sourcehost.HostError{Host: hostName, StatusCode: http.StatusTooManyRequests, Body: are.Message}
	}
	return err
}

// non200 matches the error the GraphQL client returns for a non-200 response.
var non200 = regexp.MustCompile(`^non-200 OK status code: (\d{3})`)

// graphQLError converts a failed mutation into *sourcehost.HostError. Errors
// reported in a 200 response, such as a protected branch or a head that moved,
// become 422. Transport and context errors are returned unchanged.
func graphQLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := http.StatusUnprocessableEntity
	if m := non200.FindStringSubmatch(err.Error()); m != nil {
		code, _ = strconv.Atoi(m[1])
	}
	return &sourcehost.HostError{Host: hostName, StatusCode: code, Body: err.Error()}
}
