/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with the defaults structured-output APIs expect:
// inlined definitions, every non-omitempty field required, and no additional properties.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator with strict structured-output defaults.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			ExpandedStruct:            true,
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		},
	}
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// ReflectType reflects the schema of T with a default generator.
func ReflectType[T any]() *jsonschema.Schema {
	var zero T
	return NewGenerator().Reflect(&zero)
}

// MapOf returns the schema of T as a generic JSON object, the form SDK request parameters take.
func MapOf[T any]() (map[string]any, error) {
	b, err := json.Marshal(ReflectType[T]())
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}
	// Structured-output endpoints reject the meta keywords.
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}
