/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
)

// Prompt is a parsed template and its current bindings.
type Prompt struct {
	template string
	bindings map[string]binding
}

// NewPrompt parses template and records its placeholders as unbound.
func NewPrompt(template string) (*Prompt, error) {
	bindings := make(map[string]binding)
	if _, err := walkTemplate(template, func(name string) (string, error) {
		bindings[name] = unboundBinding{name: name}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{template: template, bindings: bindings}, nil
}

// MustNewPrompt is NewPrompt for package-level templates; it panics on a malformed template.
func MustNewPrompt(template string) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

// BindText binds text verbatim to the named placeholder.
func (p *Prompt) BindText(name, text string) (*Prompt, error) {
	return p.bind(name, textBinding{text: text})
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	current, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if _, unbound := current.(unboundBinding); !unbound {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	next := &Prompt{template: p.template, bindings: maps.Clone(p.bindings)}
	next.bindings[name] = b
	return next, nil
}

// Build renders the template. It fails if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		v, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	return walkTemplate(p.template, func(name string) (string, error) {
		return values[name], nil
	})
}
