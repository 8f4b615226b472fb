// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detect locates unimplemented function stubs in a Go script and
// extracts a structured descriptor for each.
// Implements: docs/ARCHITECTURE § Stub Detection.
package detect

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	dtypes "github.com/pdiddy/drizzle/pkg/types"
)

// ParseFault reports that the script source is not syntactically valid Go.
// It is fatal and never retried.
type ParseFault struct {
	Err error
}

func (f *ParseFault) Error() string {
	return fmt.Sprintf("parsing script: %v", f.Err)
}

func (f *ParseFault) Unwrap() error { return f.Err }

// notImplementedMarkers are the substrings (lowercased) that make a lone
// panic call count as an explicit "implementation pending" signal.
var notImplementedMarkers = []string{
	"not implemented",
	"unimplemented",
	"implement me",
	"todo",
}

// Detect parses source and returns a descriptor for every stub function, in
// declaration order. A function is a stub when its body, which may carry a
// doc comment, is empty, a single bare return, or a single panic with a
// not-implemented marker string. Detection is pure: the source is never
// modified and no descriptor is ever mutated afterwards.
func Detect(source string) ([]dtypes.StubDescriptor, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "script.go", source, parser.ParseComments)
	if err != nil {
		return nil, &ParseFault{Err: err}
	}

	var stubs []dtypes.StubDescriptor

	// ast.Inspect walks every nesting level. Named functions only occur at
	// top level in Go, but walking the whole tree keeps the pass oblivious
	// to where a declaration sits.
	ast.Inspect(file, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok {
			return true
		}
		// Methods cannot be re-bound as free names in the execution
		// namespace, so they are never stubs. Neither are generic functions:
		// a type parameter has no meaning inside the sandbox, where every
		// call binds concrete values.
		if fn.Recv != nil || fn.Type.TypeParams != nil {
			return true
		}
		if !isStubBody(fn.Body) {
			return true
		}

		d, err2 := describe(fset, fn)
		if err2 != nil {
			err = err2
			return false
		}
		stubs = append(stubs, d)
		return true
	})
	if err != nil {
		return nil, err
	}

	return stubs, nil
}

// isStubBody classifies a function body. Comments are not statements in Go,
// so a body holding only a doc comment is an empty body and counts as a stub.
func isStubBody(body *ast.BlockStmt) bool {
	if body == nil || len(body.List) == 0 {
		return true
	}
	if len(body.List) != 1 {
		return false
	}

	switch stmt := body.List[0].(type) {
	case *ast.ReturnStmt:
		// A bare return is a no-op; a return with results is real code.
		return len(stmt.Results) == 0
	case *ast.ExprStmt:
		return isNotImplementedPanic(stmt.X)
	}
	return false
}

// isNotImplementedPanic reports whether expr is panic("...") with a marker
// string such as "not implemented" or "TODO".
func isNotImplementedPanic(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	ident, ok := call.Fun.(*ast.Ident)
	if !ok || ident.Name != "panic" || len(call.Args) != 1 {
		return false
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return false
	}
	msg, err := strconv.Unquote(lit.Value)
	if err != nil {
		return false
	}
	msg = strings.ToLower(msg)
	for _, marker := range notImplementedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// describe builds the immutable descriptor for one stub declaration.
func describe(fset *token.FileSet, fn *ast.FuncDecl) (dtypes.StubDescriptor, error) {
	d := dtypes.StubDescriptor{
		Name:       fn.Name.Name,
		ParamTypes: map[string]string{},
		Line:       fset.Position(fn.Pos()).Line,
	}
	if fn.Doc != nil {
		d.Doc = strings.TrimSpace(fn.Doc.Text())
	}

	if fn.Type.Params != nil {
		// Unnamed and blank parameters are legal Go but unusable as binding
		// names, so they get synthesized positional names. Explicit names are
		// reserved first so a synthesized name never collides with one.
		used := make(map[string]bool)
		for _, field := range fn.Type.Params.List {
			for _, name := range field.Names {
				if name.Name != "_" {
					used[name.Name] = true
				}
			}
		}
		next := 0
		fresh := func() string {
			for {
				candidate := fmt.Sprintf("arg%d", next)
				next++
				if !used[candidate] {
					used[candidate] = true
					return candidate
				}
			}
		}

		for _, field := range fn.Type.Params.List {
			typeStr := typeString(field.Type)
			names := field.Names
			if len(names) == 0 {
				names = []*ast.Ident{{Name: "_"}}
			}
			for _, name := range names {
				paramName := name.Name
				if paramName == "_" {
					paramName = fresh()
				}
				d.Params = append(d.Params, paramName)
				if typeStr != "" {
					d.ParamTypes[paramName] = typeStr
				}
			}
		}
	}

	if fn.Type.Results != nil {
		switch len(fn.Type.Results.List) {
		case 0:
		case 1:
			if len(fn.Type.Results.List[0].Names) <= 1 {
				d.ReturnType = typeString(fn.Type.Results.List[0].Type)
				break
			}
			fallthrough
		default:
			var parts []string
			for _, field := range fn.Type.Results.List {
				t := typeString(field.Type)
				n := len(field.Names)
				if n == 0 {
					n = 1
				}
				for i := 0; i < n; i++ {
					parts = append(parts, t)
				}
			}
			d.ReturnType = "(" + strings.Join(parts, ", ") + ")"
		}
	}

	if err := d.Validate(); err != nil {
		return dtypes.StubDescriptor{}, fmt.Errorf("line %d: %w", d.Line, err)
	}
	return d, nil
}

// typeString renders a type expression as source text, with "..." kept for
// variadic parameters.
func typeString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	if ell, ok := expr.(*ast.Ellipsis); ok {
		return "..." + types.ExprString(ell.Elt)
	}
	return types.ExprString(expr)
}
