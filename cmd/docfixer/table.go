/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chainguard.dev/docfixer/agents/result"
	"chainguard.dev/docfixer/audit"
	"chainguard.dev/docfixer/pipeline"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// maxCell bounds free text such as reasoning in a table cell.
const maxCell = 60

func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// renderResult prints the outcome of one pipeline run as field/value rows.
func renderResult(w io.Writer, ev pipeline.PushEvent, res *pipeline.Result) error {
	table := newTable([]string{"Field", "Value"}, w)
	rows := [][]string{
		{"repository", ev.Repository},
		{"branch", ev.Branch()},
		{"after", ev.After},
		{"status", string(res.Status)},
	}
	if res.Status == pipeline.StatusIgnored {
		rows = append(rows, []string{"reason", res.Reason})
	}
	if s := res.Summary; s != nil {
		rows = append(rows,
			[]string{"evaluated", strconv.Itoa(s.Evaluated)},
			[]string{"corrections", strconv.Itoa(s.Corrections)},
			[]string{"commit", commitCell(s.CommitID)},
			[]string{"dry run", strconv.FormatBool(s.DryRun)},
			[]string{"reasoning", oneLine(s.Reasoning)},
		)
		if len(s.Rejected) > 0 {
			rows = append(rows, []string{"rejected", strings.Join(s.Rejected, ", ")})
		}
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	return table.Render()
}

// renderRecords prints audit records, newest first, one per row.
func renderRecords(w io.Writer, records []audit.Record) error {
	table := newTable([]string{"Time", "Host", "Repository", "Branch", "Edits", "Commit", "Outcome"}, w)
	for _, r := range records {
		outcome := oneLine(r.Reasoning)
		switch {
		case r.Failed():
			outcome = "error: " + oneLine(r.Error)
		case r.DryRun:
			outcome = "dry run: " + outcome
		}
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Host,
			r.Repository,
			r.Branch,
			strconv.Itoa(r.EditsApplied),
			commitCell(r.CommitID),
			outcome,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	return table.Render()
}

func commitCell(id *string) string {
	if id == nil {
		return "-"
	}
	return *id
}

func oneLine(s string) string {
	return result.Truncate(strings.Join(strings.Fields(s), " "), maxCell)
}
