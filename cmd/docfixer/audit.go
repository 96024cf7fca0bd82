/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"chainguard.dev/docfixer/audit/sqlitestore"
	"github.com/spf13/cobra"
)

type auditOptions struct {
	db    string
	limit int
}

func newAuditCommand() *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print recent records from a SQLite audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", opts.limit)
			}
			s, err := sqlitestore.Open(opts.db)
			if err != nil {
				return fmt.Errorf("opening audit log: %w", err)
			}
			defer s.Close()

			records, err := s.Recent(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit records.")
				return nil
			}
			return renderRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "docfixer-audit.db", "path to the SQLite audit log")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "number of records to print")

	return cmd
}
