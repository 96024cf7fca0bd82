/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gcsstore persists audit records as JSON objects in a Cloud Storage bucket.
//
// Objects are named <prefix>/<yyyy>/<mm>/<dd>/<timestamp>-<id>.json so a
// prefix listing returns one day of records in write order.
package gcsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"chainguard.dev/docfixer/audit"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// writeFunc uploads data as the named object.
type writeFunc func(ctx context.Context, name string, data []byte) error

// Store is an audit.Store writing one object per record.
type Store struct {
	prefix string
	write  writeFunc
	close  func() error
}

var _ audit.Store = (*Store)(nil)

// New creates a store writing under prefix in bucket.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("audit bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	b := client.Bucket(bucket)

	return &Store{
		prefix: prefix,
		close:  client.Close,
		write: func(ctx context.Context, name string, data []byte) error {
			w := b.Object(name).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Append implements audit.Store.
func (s *Store) Append(ctx context.Context, r audit.Record) (audit.Record, error) {
	r = audit.Stamp(r)

	data, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("encoding audit record: %w", err)
	}
	name := s.objectName(r)
	if err := s.write(ctx, name, data); err != nil {
		return r, fmt.Errorf("writing gs object %s: %w", name, err)
	}
	return r, nil
}

func (s *Store) objectName(r audit.Record) string {
	ts := r.Timestamp.UTC()
	return path.Join(s.prefix, ts.Format("2006/01/02"), fmt.Sprintf("%s-%s.json", ts.Format("150405.000000000"), r.ID))
}
