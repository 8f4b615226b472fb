// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"fmt"
	"strings"

	"github.com/pdiddy/drizzle/pkg/types"
)

// The dispatch entry point is exported to the interpreter under a synthetic
// import path; shims import it under a fixed alias.
const (
	dispatchImportPath = "drizzle/gen"
	dispatchPkgName    = "gen"
)

// spliceShims rewrites a stripped program so every dispatched name resolves
// again: the dispatch import goes directly after the package clause (the
// stripped source is comment-free, so the clause is the first line) and one
// shim declaration per stub goes at the end.
func spliceShims(stripped string, ns Namespace) string {
	var b strings.Builder
	nl := strings.Index(stripped, "\n")
	if nl < 0 {
		nl = len(stripped)
	}
	b.WriteString(stripped[:nl])
	fmt.Fprintf(&b, "\n\nimport %s %q\n", dispatchPkgName, dispatchImportPath)
	b.WriteString(stripped[nl:])
	for _, name := range ns.Order {
		b.WriteString("\n")
		b.WriteString(shimSource(ns.Stubs[name]))
		b.WriteString("\n")
	}
	return b.String()
}

// shimSource renders the replacement declaration for one stub. The shim
// keeps the stub's exact signature and forwards every parameter to Dispatch
// by name; a variadic tail travels as one slice value, matching how the
// sandbox binds it. Dispatch returns any, so a typed result comes back
// through a comma-ok assertion. The ok is deliberately dropped: an
// interface-typed result can be nil, and a plain assertion would panic on
// it.
func shimSource(d types.StubDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", d.Name)
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", p, d.ParamTypes[p])
	}
	b.WriteString(")")
	if d.ReturnType != "" {
		b.WriteString(" " + d.ReturnType)
	}
	b.WriteString(" {\n")

	callArgs := make([]string, 0, len(d.Params)+1)
	callArgs = append(callArgs, fmt.Sprintf("%q", d.Name))
	callArgs = append(callArgs, d.Params...)
	call := fmt.Sprintf("%s.Dispatch(%s)", dispatchPkgName, strings.Join(callArgs, ", "))
	switch d.ReturnType {
	case "":
		fmt.Fprintf(&b, "\t%s\n", call)
	case "any", "interface{}":
		fmt.Fprintf(&b, "\treturn %s\n", call)
	default:
		fmt.Fprintf(&b, "\tv, _ := %s.(%s)\n\treturn v\n", call, d.ReturnType)
	}
	b.WriteString("}")
	return b.String()
}
