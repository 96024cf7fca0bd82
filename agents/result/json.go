/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON returns the JSON payload of a model reply.
// If the reply contains a line that is exactly ```json, the lines up to the next closing ```
// are returned. Otherwise the reply is trimmed and any surrounding ``` markers are removed.
func ExtractJSON(text string) string {
	var buf bytes.Buffer
	inBlock, found := false, false

	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBlock && trimmed == "```json" {
			inBlock, found = true, true
			continue
		}
		if inBlock && trimmed == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Parsed is the outcome of decoding a model reply into T.
// Exactly one of Value (when Err is nil) or Err is meaningful; Raw always holds the reply as received.
type Parsed[T any] struct {
	Value T
	Raw   string
	Err   error
}

// OK reports whether the reply decoded successfully.
func (p Parsed[T]) OK() bool {
	return p.Err == nil
}

// Parse extracts the JSON payload of text and decodes it into T.
func Parse[T any](text string) Parsed[T] {
	var v T
	err := json.Unmarshal([]byte(ExtractJSON(text)), &v)
	return Parsed[T]{Value: v, Raw: text, Err: err}
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
