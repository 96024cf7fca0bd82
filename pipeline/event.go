/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// KindPush is the kind of a branch push event.
const KindPush = "push"

// ZeroRevision is the revision hosts send as the target of a branch deletion.
const ZeroRevision = "0000000000000000000000000000000000000000"

// DocExtension selects the files the pipeline reviews.
const DocExtension = ".md"

// ErrInvalidEvent marks push events that lack a required field.
var ErrInvalidEvent = errors.New("invalid push event")

// PushEvent is a host-neutral push notification.
type PushEvent struct {
	// Kind is KindPush for branch pushes. Anything else is ignored.
	Kind string `json:"kind"`
	// Repository identifies the repository on its host, such as a GitLab
	// project id or a GitHub owner/name.
	Repository string `json:"repository"`
	// Ref is the full pushed ref, refs/heads/<branch> for branches.
	Ref    string `json:"ref"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Branch returns the branch name of the pushed ref.
func (e PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}

// IsTag reports whether the push targets a tag.
func (e PushEvent) IsTag() bool {
	return strings.HasPrefix(e.Ref, "refs/tags/")
}

// IsDeletion reports whether the push deletes its branch.
func (e PushEvent) IsDeletion() bool {
	return e.After == ZeroRevision
}

// Validate returns an error wrapping ErrInvalidEvent that names every missing field.
func (e PushEvent) Validate() error {
	var missing []string
	if e.Repository == "" {
		missing = append(missing, "repository id")
	}
	if e.Before == "" {
		missing = append(missing, "before")
	}
	if e.After == "" {
		missing = append(missing, "after")
	}
	if e.Ref == "" {
		missing = append(missing, "ref")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}
	return nil
}
