// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"testing"

	"github.com/pdiddy/drizzle/pkg/types"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare statements pass through",
			raw:  "return a + b",
			want: "return a + b",
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "\n\n  return a + b\n\n",
			want: "return a + b",
		},
		{
			name: "fence with language tag",
			raw:  "```go\nreturn a + b\n```",
			want: "return a + b",
		},
		{
			name: "fence without language tag",
			raw:  "```\nreturn a + b\n```",
			want: "return a + b",
		},
		{
			name: "bare language token line",
			raw:  "go\nreturn a + b",
			want: "return a + b",
		},
		{
			name: "full function declaration unwrapped",
			raw:  "func add(a int, b int) int {\n\treturn a + b\n}",
			want: "return a + b",
		},
		{
			name: "fenced full declaration",
			raw:  "```go\nfunc add(a int, b int) int {\n\treturn a + b\n}\n```",
			want: "return a + b",
		},
		{
			name: "multi-line body survives",
			raw:  "```go\nsum := a + b\nreturn sum\n```",
			want: "sum := a + b\nreturn sum",
		},
		{
			name: "unparseable func text left alone",
			raw:  "func garbage(((",
			want: "func garbage(((",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateBody(t *testing.T) {
	d := types.StubDescriptor{
		Name:       "add",
		Params:     []string{"a", "b"},
		ParamTypes: map[string]string{"a": "int", "b": "int"},
		ReturnType: "int",
	}

	if err := ValidateBody(d, "return a + b"); err != nil {
		t.Errorf("valid body rejected: %v", err)
	}
	if err := ValidateBody(d, "if a > b {\n\treturn a\n}\nreturn b"); err != nil {
		t.Errorf("valid multi-statement body rejected: %v", err)
	}

	err := ValidateBody(d, "return a +")
	if err == nil {
		t.Fatal("invalid body accepted")
	}
	if _, ok := err.(*SyntaxValidationFault); !ok {
		t.Errorf("error = %T, want *SyntaxValidationFault", err)
	}
}

func TestValidateBodyUntypedParams(t *testing.T) {
	d := types.StubDescriptor{
		Name:   "mystery",
		Params: []string{"x"},
	}
	// The wrapper falls back to any for untyped parameters, so validation
	// never trips over the signature itself.
	if err := ValidateBody(d, "return"); err != nil {
		t.Errorf("body rejected: %v", err)
	}
}
