/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder renders prompt templates with {{name}} placeholders.
//
// Templates are parsed once, usually into package-level variables with
// MustNewPrompt. Binding returns a new Prompt, so a parsed template can be
// shared across concurrent requests. Build fails if any placeholder is left
// unbound. Bound values are inserted verbatim and are never re-scanned for
// placeholders, so diffs and file contents containing "{{" are safe.
package promptbuilder
