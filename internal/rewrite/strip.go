// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite excises stub definitions from a script, leaving the rest
// of the program intact and re-executable once stub names are supplied by
// the dispatch namespace.
// Implements: docs/ARCHITECTURE § Program Transformation.
package rewrite

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
)

// Strip removes every function declaration whose name is in names and
// re-prints the program. Statement order, non-stub declarations, and
// imports are preserved. Two declarations sharing a stubbed name are both
// removed; the namespace later holds exactly one binding for that name.
//
// The source must already have parsed during detection, so a parse failure
// here is reported plainly rather than as a ParseFault.
func Strip(source string, names map[string]bool) (string, error) {
	fset := token.NewFileSet()
	// Comments are deliberately dropped: they carry no execution semantics,
	// and detaching a removed declaration's doc comment would otherwise
	// leave it floating mid-file.
	file, err := parser.ParseFile(fset, "script.go", source, 0)
	if err != nil {
		return "", fmt.Errorf("reparsing script: %w", err)
	}

	kept := file.Decls[:0]
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil && names[fn.Name.Name] {
			continue
		}
		kept = append(kept, decl)
	}
	file.Decls = kept

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return "", fmt.Errorf("printing stripped script: %w", err)
	}
	return buf.String(), nil
}
