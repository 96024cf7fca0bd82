/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main is the docfixer agent. It receives push webhooks from GitLab
// and GitHub, asks a language model to correct the markdown changed by the
// push, and commits the corrections back to the pushed branch.
//
// Subcommands:
//   - serve runs the webhook server and the metrics listener
//   - replay runs the pipeline once against a recorded push payload
//   - audit prints recent records from a SQLite audit log
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "docfixer: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docfixer",
		Short:         "Auto-correct markdown pushed to GitLab and GitHub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newReplayCommand())
	cmd.AddCommand(newAuditCommand())
	return cmd
}
