/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sqlitestore persists audit records in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"chainguard.dev/docfixer/audit"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// timeFormat has fixed width so created_at sorts chronologically as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store is an audit.Store backed by SQLite in WAL mode.
type Store struct {
	db *sql.DB
}

var _ audit.Store = (*Store)(nil)

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append implements audit.Store.
func (s *Store) Append(ctx context.Context, r audit.Record) (audit.Record, error) {
	r = audit.Stamp(r)

	files, err := json.Marshal(nonNil(r.FilesEvaluated))
	if err != nil {
		return r, fmt.Errorf("encoding files_evaluated: %w", err)
	}
	rejected, err := json.Marshal(nonNil(r.RejectedPaths))
	if err != nil {
		return r, fmt.Errorf("encoding rejected_paths: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_actions (
			id, type, host, repository, branch, before_sha, after_sha,
			files_evaluated, edits_applied, rejected_paths, reasoning,
			commit_id, dry_run, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Host, r.Repository, r.Branch, r.Before, r.After,
		string(files), r.EditsApplied, string(rejected), r.Reasoning,
		r.CommitID, r.DryRun, r.Error, r.Timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return r, fmt.Errorf("inserting audit record: %w", err)
	}
	return r, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, host, repository, branch, before_sha, after_sha,
			files_evaluated, edits_applied, rejected_paths, reasoning,
			commit_id, dry_run, error, created_at
		FROM agent_actions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			r               audit.Record
			files, rejected string
			commit          sql.NullString
			createdAt       string
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.Host, &r.Repository, &r.Branch, &r.Before, &r.After,
			&files, &r.EditsApplied, &rejected, &r.Reasoning,
			&commit, &r.DryRun, &r.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &r.FilesEvaluated); err != nil {
			return nil, fmt.Errorf("decoding files_evaluated of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(rejected), &r.RejectedPaths); err != nil {
			return nil, fmt.Errorf("decoding rejected_paths of %s: %w", r.ID, err)
		}
		if commit.Valid {
			r.CommitID = &commit.String
		}
		if r.Timestamp, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing timestamp of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
