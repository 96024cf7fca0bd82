/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result decodes structured replies from language models.

Models are asked to answer with a single JSON object, but they frequently wrap
it in a markdown fence or surround it with whitespace. ExtractJSON strips that
wrapping, and Parse decodes the remainder into a typed value.

Parse never panics and never hides a failure: it returns a Parsed value that
carries either the decoded value or the decode error alongside the raw text,
so callers can choose a fallback explicitly:

	p := result.Parse[Reply](text)
	if !p.OK() {
		return fallback(result.Truncate(p.Raw, 200))
	}
	return p.Value
*/
package result
