// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner orchestrates a generative run: detect stubs, strip their
// declarations, rebind each name to a dispatch shim, and execute the
// rewritten program in a host interpreter. A program with no stubs runs
// unmodified.
// Implements: docs/ARCHITECTURE § Runner.
package runner

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/pdiddy/drizzle/internal/detect"
	"github.com/pdiddy/drizzle/internal/rewrite"
	"github.com/pdiddy/drizzle/internal/sandbox"
	"github.com/pdiddy/drizzle/internal/synth"
	"github.com/pdiddy/drizzle/pkg/types"
)

// NamespaceFault reports a stub that cannot be bound into the dispatch
// namespace.
type NamespaceFault struct {
	Stub   string
	Reason string
}

func (f *NamespaceFault) Error() string {
	return fmt.Sprintf("namespace fault in %q: %s", f.Stub, f.Reason)
}

// ProgramFault reports a failure raised by the host program itself, as
// opposed to a fault attributed to a specific stub.
type ProgramFault struct {
	Msg string
}

func (f *ProgramFault) Error() string {
	return "program fault: " + f.Msg
}

// Namespace is the dispatch table for one program: the stub names that will
// be served generatively, in source order, with their descriptors.
type Namespace struct {
	Order []string
	Stubs map[string]types.StubDescriptor
}

// BuildNamespace filters detected stubs down to the dispatchable set.
// main and init are never dispatched even when their bodies look like
// stubs, and a name keeps its first descriptor when it appears more than
// once. Multi-result stubs and stubs whose signatures reference
// script-declared types are rejected here rather than at call time so the
// program refuses to start instead of failing mid-run.
func BuildNamespace(stubs []types.StubDescriptor) (Namespace, error) {
	ns := Namespace{Stubs: make(map[string]types.StubDescriptor)}
	for _, d := range stubs {
		if d.Name == "main" || d.Name == "init" {
			continue
		}
		if strings.HasPrefix(d.ReturnType, "(") {
			return Namespace{}, &NamespaceFault{
				Stub:   d.Name,
				Reason: "multiple results are not supported; return a single value",
			}
		}
		if name := unresolvableType(d); name != "" {
			return Namespace{}, &NamespaceFault{
				Stub:   d.Name,
				Reason: fmt.Sprintf("signature references %q, which does not exist inside the sandbox; use predeclared or package-qualified types", name),
			}
		}
		if _, seen := ns.Stubs[d.Name]; seen {
			continue
		}
		ns.Stubs[d.Name] = d
		ns.Order = append(ns.Order, d.Name)
	}
	return ns, nil
}

// builtinTypes are the predeclared type names a stub signature may use
// without qualification. Any other unqualified name must have been declared
// by the script itself, and script-declared types do not exist inside the
// sandbox's fresh namespace.
var builtinTypes = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true,
}

// unresolvableType returns the first name in the stub's signature that the
// sandbox cannot resolve, or "" when the signature is safe. Qualified types
// (pkg.Type) are left to the sandbox's import set, which reports its own
// fault at call time if the package is not exposed.
func unresolvableType(d types.StubDescriptor) string {
	exprs := make([]string, 0, len(d.Params)+1)
	for _, p := range d.Params {
		exprs = append(exprs, d.ParamTypes[p])
	}
	exprs = append(exprs, d.ReturnType)

	for _, t := range exprs {
		t = strings.TrimPrefix(t, "...")
		if t == "" {
			continue
		}
		expr, err := parser.ParseExpr(t)
		if err != nil {
			continue
		}
		if name := firstUnresolvable(expr); name != "" {
			return name
		}
	}
	return ""
}

// firstUnresolvable walks a type expression looking for an unqualified name
// outside the predeclared set. Field names in struct and interface literals
// are not type references and are skipped.
func firstUnresolvable(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.Ident:
		if !builtinTypes[v.Name] {
			return v.Name
		}
	case *ast.SelectorExpr:
		return ""
	case *ast.ParenExpr:
		return firstUnresolvable(v.X)
	case *ast.StarExpr:
		return firstUnresolvable(v.X)
	case *ast.Ellipsis:
		return firstUnresolvable(v.Elt)
	case *ast.ArrayType:
		if v.Len != nil {
			if name := firstUnresolvable(v.Len); name != "" {
				return name
			}
		}
		return firstUnresolvable(v.Elt)
	case *ast.MapType:
		if name := firstUnresolvable(v.Key); name != "" {
			return name
		}
		return firstUnresolvable(v.Value)
	case *ast.ChanType:
		return firstUnresolvable(v.Value)
	case *ast.FuncType:
		for _, list := range []*ast.FieldList{v.Params, v.Results} {
			if list == nil {
				continue
			}
			for _, f := range list.List {
				if name := firstUnresolvable(f.Type); name != "" {
					return name
				}
			}
		}
	case *ast.StructType:
		for _, f := range v.Fields.List {
			if name := firstUnresolvable(f.Type); name != "" {
				return name
			}
		}
	case *ast.InterfaceType:
		for _, f := range v.Methods.List {
			if name := firstUnresolvable(f.Type); name != "" {
				return name
			}
		}
	case *ast.IndexExpr:
		if name := firstUnresolvable(v.X); name != "" {
			return name
		}
		return firstUnresolvable(v.Index)
	}
	return ""
}

// Options configures a Runner. Zero values select os.Stdout, os.Stderr,
// and no verbose echo.
type Options struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Verbose io.Writer
}

// Runner executes one program with generative dispatch. The synthesis
// engine and the sandbox are shared across every stub call in the run, so
// the implementation cache and the allow-list are run-scoped.
type Runner struct {
	engine  *synth.Engine
	box     *sandbox.Sandbox
	stdout  io.Writer
	stderr  io.Writer
	verbose io.Writer
}

// New builds a Runner around a synthesis engine and a sandbox.
func New(engine *synth.Engine, box *sandbox.Sandbox, opts Options) *Runner {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	verbose := opts.Verbose
	if verbose == nil {
		verbose = io.Discard
	}
	return &Runner{
		engine:  engine,
		box:     box,
		stdout:  stdout,
		stderr:  stderr,
		verbose: verbose,
	}
}

// dispatchPanic carries a stub fault out of interpreted code. The shim has
// no error result to thread it through, so the dispatch function panics and
// Run recovers the fault from the interpreter's panic wrapper.
type dispatchPanic struct {
	err error
}

// Run executes the program source. Stub declarations are stripped and their
// names rebound to shims that synthesize an implementation on first call
// and execute it in the sandbox; everything else runs as written.
func (r *Runner) Run(ctx context.Context, source string) error {
	stubs, err := detect.Detect(source)
	if err != nil {
		return err
	}
	ns, err := BuildNamespace(stubs)
	if err != nil {
		return err
	}

	program := source
	if len(ns.Order) > 0 {
		names := make(map[string]bool, len(ns.Order))
		for _, name := range ns.Order {
			names[name] = true
			fmt.Fprintf(r.verbose, "[drizzle] stub %s\n", ns.Stubs[name].Signature())
		}
		stripped, err := rewrite.Strip(source, names)
		if err != nil {
			return err
		}
		program = spliceShims(stripped, ns)
	}

	i := interp.New(interp.Options{Stdout: r.stdout, Stderr: r.stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("load host symbols: %w", err)
	}
	if len(ns.Order) > 0 {
		exports := interp.Exports{
			dispatchImportPath + "/" + dispatchPkgName: {
				"Dispatch": reflect.ValueOf(r.dispatchFunc(ctx, ns)),
			},
		}
		if err := i.Use(exports); err != nil {
			return fmt.Errorf("bind dispatch: %w", err)
		}
	}

	if _, err := i.Eval(program); err != nil {
		return unwrapFault(err)
	}
	return nil
}

// dispatchFunc builds the host function every shim calls. It serializes
// synthesis and execution for one stub invocation; faults escape via panic
// because shims cannot return errors.
func (r *Runner) dispatchFunc(ctx context.Context, ns Namespace) func(string, ...any) any {
	return func(name string, args ...any) any {
		d, ok := ns.Stubs[name]
		if !ok {
			panic(dispatchPanic{&NamespaceFault{Stub: name, Reason: "not in dispatch namespace"}})
		}
		impl, err := r.engine.Synthesize(ctx, d)
		if err != nil {
			panic(dispatchPanic{err})
		}
		out, err := r.box.Run(ctx, d, impl, args, nil)
		if err != nil {
			panic(dispatchPanic{err})
		}
		return out
	}
}

// unwrapFault converts an interpreter error into the fault it carries.
// Dispatch faults recovered from a shim panic come back typed; anything
// else is the program's own failure.
func unwrapFault(err error) error {
	var p interp.Panic
	if errors.As(err, &p) {
		if dp, ok := p.Value.(dispatchPanic); ok {
			return dp.err
		}
		return &ProgramFault{Msg: fmt.Sprintf("panic: %v", p.Value)}
	}
	return &ProgramFault{Msg: err.Error()}
}
