/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"os"

	"chainguard.dev/docfixer/pipeline"
	"chainguard.dev/docfixer/webhook"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	host   string
	event  string
	dryRun bool
}

func newReplayCommand() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the pipeline once against a recorded push payload",
		Long: `Decode a recorded push payload and run the same pipeline the server runs.

The payload is the body a host delivered to the webhook. Credentials and the
evaluator come from the same environment variables as serve.

Examples:
  docfixer replay --host gitlab --event push.json --dry-run
  docfixer replay --host github --event push.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReplay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "gitlab", "source host that sent the payload (gitlab|github)")
	cmd.Flags().StringVar(&opts.event, "event", "", "path to the recorded payload (required)")
	_ = cmd.MarkFlagRequired("event")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "evaluate without committing")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *replayOptions) error {
	ctx := cmd.Context()

	f, err := os.Open(opts.event)
	if err != nil {
		return fmt.Errorf("opening event: %w", err)
	}
	defer f.Close()

	ev, err := decodeEvent(opts.host, f)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, envconfig.OsLookuper())
	if err != nil {
		return err
	}
	cfg.DryRun = cfg.DryRun || opts.dryRun

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	p, err := a.pipelineFor(opts.host)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, ev)
	if err != nil {
		return err
	}
	return renderResult(cmd.OutOrStdout(), ev, res)
}

func decodeEvent(host string, r io.Reader) (pipeline.PushEvent, error) {
	switch host {
	case "gitlab":
		return webhook.DecodeGitLab(r)
	case "github":
		return webhook.DecodeGitHub(r)
	default:
		return pipeline.PushEvent{}, fmt.Errorf("unknown host %q: must be gitlab or github", host)
	}
}
