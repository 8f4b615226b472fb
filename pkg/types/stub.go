// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// StubDescriptor is the structured extraction of one unimplemented function:
// its name, ordered parameters, declared types, and doc comment. Descriptors
// are created once per detection pass and never mutated.
type StubDescriptor struct {
	// Name is the function's identifier, unique within the script's
	// top-level namespace (first occurrence wins on collision).
	Name string `json:"name" yaml:"name"`

	// Params holds parameter names in declaration order; the order is the
	// positional-argument binding order at dispatch time.
	Params []string `json:"params" yaml:"params"`

	// ParamTypes maps a parameter name to its declared type rendered as
	// source text. Absent entries mean the parameter is untyped.
	ParamTypes map[string]string `json:"param_types,omitempty" yaml:"param_types,omitempty"`

	// ReturnType is the declared result type rendered as source text, or
	// empty when the function declares no result.
	ReturnType string `json:"return_type,omitempty" yaml:"return_type,omitempty"`

	// Doc is the function's doc comment text, the natural-language
	// specification of intended behavior. May be empty.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Line is the 1-based source line of the declaration, for diagnostics.
	Line int `json:"line" yaml:"line"`
}

// Signature reconstructs the declaration signature, e.g.
// "add(a int, b int) int".
func (d StubDescriptor) Signature() string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteString("(")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p)
		if t, ok := d.ParamTypes[p]; ok {
			b.WriteString(" ")
			b.WriteString(t)
		}
	}
	b.WriteString(")")
	if d.ReturnType != "" {
		b.WriteString(" ")
		b.WriteString(d.ReturnType)
	}
	return b.String()
}

// Validate checks the descriptor's structural invariant: no duplicate
// parameter names.
func (d StubDescriptor) Validate() error {
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if seen[p] {
			return fmt.Errorf("stub %s: duplicate parameter %q", d.Name, p)
		}
		seen[p] = true
	}
	return nil
}

// DocSummary returns the first non-empty line of the doc comment, for
// one-line listings.
func (d StubDescriptor) DocSummary() string {
	for _, line := range strings.Split(d.Doc, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
