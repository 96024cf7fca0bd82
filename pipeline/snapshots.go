/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/docfixer/agents/evaluator"
	"chainguard.dev/docfixer/sourcehost"
	"golang.org/x/sync/errgroup"
)

// DocumentationDiffs keeps the entries whose new path is a documentation file
// that still exists after the push, in their original order.
func DocumentationDiffs(diffs []sourcehost.DiffEntry) []sourcehost.DiffEntry {
	var out []sourcehost.DiffEntry
	for _, d := range diffs {
		if strings.HasSuffix(d.NewPath, DocExtension) && !d.DeletedFile {
			out = append(out, d)
		}
	}
	return out
}

// CombinedDiff joins the diff texts of entries with blank lines.
func CombinedDiff(entries []sourcehost.DiffEntry) string {
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Diff)
	}
	return strings.Join(texts, "\n\n")
}

// fetchSnapshots reads every entry's new path at ref concurrently.
// Results keep the order of entries. The first failure cancels the rest.
func (p *Pipeline) fetchSnapshots(ctx context.Context, repo, ref string, entries []sourcehost.DiffEntry) ([]evaluator.FileSnapshot, error) {
	out := make([]evaluator.FileSnapshot, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			content, err := step(ctx, "pipeline.snapshot", p.hostTimeout, func(ctx context.Context) (string, error) {
				return p.host.FileContent(ctx, repo, e.NewPath, ref)
			})
			if err != nil {
				return fmt.Errorf("fetching %s: %w", e.NewPath, err)
			}
			out[i] = evaluator.FileSnapshot{Path: e.NewPath, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
