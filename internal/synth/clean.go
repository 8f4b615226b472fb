// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Clean normalizes raw model output down to bare implementation statements:
// surrounding code fences are removed, a leading language-name token is
// dropped, and a response that wrapped the body in a full func declaration
// is unwrapped to just the body.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = unfence(s)

	// A bare language token on its own first line ("go" or "golang").
	if first, rest, ok := strings.Cut(s, "\n"); ok {
		switch strings.TrimSpace(first) {
		case "go", "golang":
			s = strings.TrimSpace(rest)
		}
	}

	if strings.HasPrefix(s, "func") {
		if body, ok := declaredBody(s); ok {
			s = body
		}
	}

	return s
}

// unfence strips a surrounding markdown code fence, including any language
// tag on the opening fence line.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return s
	}
	if j := strings.LastIndex(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}

// declaredBody extracts the body statements when the response is a complete
// function declaration instead of bare statements. Returns false when the
// text does not parse as a declaration.
func declaredBody(s string) (string, bool) {
	src := "package p\n\n" + s
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "response.go", src, 0)
	if err != nil || len(file.Decls) == 0 {
		return "", false
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return "", false
	}

	start := fset.Position(fn.Body.Lbrace).Offset
	end := fset.Position(fn.Body.Rbrace).Offset
	if start < 0 || end <= start || end >= len(src) {
		return "", false
	}
	return strings.TrimSpace(src[start+1 : end]), true
}
