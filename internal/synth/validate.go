// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"
	"go/parser"
	"go/token"
	"strings"

	"github.com/pdiddy/drizzle/pkg/types"
)

// ValidateBody checks that body parses as the body of the stub's function.
// Validation is purely syntactic; type faults surface later, at execution
// time. The returned error carries the parser's message for the
// retry-with-feedback loop.
func ValidateBody(d types.StubDescriptor, body string) error {
	src := fmt.Sprintf("package sandbox\n\nfunc %s {\n%s\n}\n", wrapperSignature(d), body)

	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, d.Name+".go", src, 0); err != nil {
		return &SyntaxValidationFault{Stub: d.Name, Msg: err.Error()}
	}
	return nil
}

// wrapperSignature renders the signature used to wrap a body for parsing.
// Untyped parameters fall back to any so the wrapper itself never fails to
// parse.
func wrapperSignature(d types.StubDescriptor) string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteString("(")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		t, ok := d.ParamTypes[p]
		if !ok || t == "" {
			t = "any"
		}
		b.WriteString(p)
		b.WriteString(" ")
		b.WriteString(t)
	}
	b.WriteString(")")
	if d.ReturnType != "" {
		b.WriteString(" ")
		b.WriteString(d.ReturnType)
	}
	return b.String()
}
