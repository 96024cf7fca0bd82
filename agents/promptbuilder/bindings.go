/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import "fmt"

// binding produces the text substituted for a placeholder.
type binding interface {
	value() (string, error)
}

type unboundBinding struct {
	name string
}

func (u unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type textBinding struct {
	text string
}

func (t textBinding) value() (string, error) {
	return t.text, nil
}
