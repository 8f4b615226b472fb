// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sandbox executes synthesized function bodies inside a fresh,
// restricted interpreter namespace. Only an enumerated allow-list of
// standard library bindings is exposed; nothing is inherited from the host
// process environment, and no state survives past one call.
// Implements: docs/ARCHITECTURE § Execution Sandbox.
package sandbox

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/pdiddy/drizzle/pkg/types"
)

// ExecutionFault reports that synthesized code failed during sandboxed
// execution. It carries the stub's name and the original fault message, and
// never invalidates the cached implementation.
type ExecutionFault struct {
	Stub string
	Msg  string
}

func (f *ExecutionFault) Error() string {
	return fmt.Sprintf("stub %s: execution failed: %s", f.Stub, f.Msg)
}

// basePackages is the fixed allow-list of bindings every sandbox exposes:
// text, regular-expression, math, date, and path utilities.
var basePackages = []string{
	"fmt",
	"strings",
	"strconv",
	"unicode",
	"regexp",
	"math",
	"sort",
	"errors",
	"time",
	"path",
}

// networkPackages are exposed only when the configuration allows network
// access from synthesized code.
var networkPackages = []string{
	"net/http",
	"net/url",
}

// optionalPackages are exposed when the interpreter's symbol table carries
// them; absence is not an error, the binding is simply omitted.
var optionalPackages = []string{
	"encoding/json",
	"math/big",
	"math/rand",
	"image",
}

// Sandbox builds per-call evaluation namespaces from a fixed binding
// allow-list. The Sandbox itself holds no call state; every Run starts from
// a fresh interpreter so nothing leaks between calls.
type Sandbox struct {
	packages []string
	symbols  interp.Exports
}

// New resolves the allow-list against the interpreter's standard library
// symbol table and returns a Sandbox exposing exactly those bindings.
func New(cfg types.SandboxConfig) *Sandbox {
	allowed := append([]string{}, basePackages...)
	if cfg.AllowNetwork {
		allowed = append(allowed, networkPackages...)
	}
	allowed = append(allowed, optionalPackages...)
	allowed = append(allowed, cfg.ExtraPackages...)

	symbols := interp.Exports{}
	var present []string
	for _, pkg := range allowed {
		key := pkg + "/" + path.Base(pkg)
		syms, ok := stdlib.Symbols[key]
		if !ok {
			continue
		}
		if _, dup := symbols[key]; dup {
			continue
		}
		symbols[key] = syms
		present = append(present, pkg)
	}

	return &Sandbox{packages: present, symbols: symbols}
}

// Packages returns the resolved binding allow-list, for prompt construction
// and diagnostics.
func (s *Sandbox) Packages() []string {
	return append([]string(nil), s.packages...)
}

// Run executes impl as the body of the stub's function against the given
// call arguments and returns the produced value. Positional arguments bind
// by parameter order; keyword arguments bind by name and take precedence
// when both target the same parameter. Any fault raised by the synthesized
// code is re-raised as an ExecutionFault carrying the stub's name.
func (s *Sandbox) Run(ctx context.Context, d types.StubDescriptor, impl string, args []any, kwargs map[string]any) (result any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if uerr := i.Use(s.symbols); uerr != nil {
		return nil, fmt.Errorf("loading sandbox bindings: %w", uerr)
	}
	for _, pkg := range s.packages {
		if _, ierr := i.Eval(fmt.Sprintf("import %q", pkg)); ierr != nil {
			return nil, fmt.Errorf("importing sandbox binding %s: %w", pkg, ierr)
		}
	}

	fn, ferr := i.Eval(literalSource(d, impl))
	if ferr != nil {
		return nil, &ExecutionFault{Stub: d.Name, Msg: ferr.Error()}
	}
	if fn.Kind() != reflect.Func {
		return nil, &ExecutionFault{Stub: d.Name, Msg: "implementation did not evaluate to a function"}
	}

	in, berr := bindArgs(d, fn.Type(), args, kwargs)
	if berr != nil {
		return nil, &ExecutionFault{Stub: d.Name, Msg: berr.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExecutionFault{Stub: d.Name, Msg: fmt.Sprint(r)}
		}
	}()

	var out []reflect.Value
	if fn.Type().IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// literalSource wraps impl as an anonymous function with the stub's
// signature. Untyped parameters fall back to any.
func literalSource(d types.StubDescriptor, impl string) string {
	var b strings.Builder
	// Parenthesized so yaegi evaluates the literal as an expression and
	// returns a func value rather than a pointer.
	b.WriteString("(func(")
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
	b.WriteString(" {\n")
	b.WriteString(impl)
	b.WriteString("\n})")
	return b.String()
}

// bindArgs maps call arguments onto the function's parameters: positional
// arguments by index, then keyword arguments by name on top. Unbound
// parameters take their zero value, reproducing ordinary call-binding
// semantics as closely as Go allows.
func bindArgs(d types.StubDescriptor, fnType reflect.Type, args []any, kwargs map[string]any) ([]reflect.Value, error) {
	n := fnType.NumIn()
	if len(args) > n {
		return nil, fmt.Errorf("too many positional arguments: got %d, want at most %d", len(args), n)
	}

	index := make(map[string]int, len(d.Params))
	for i, p := range d.Params {
		index[p] = i
	}

	bound := make([]any, n)
	set := make([]bool, n)
	for i, a := range args {
		bound[i] = a
		set[i] = true
	}
	for name, v := range kwargs {
		i, ok := index[name]
		if !ok || i >= n {
			return nil, fmt.Errorf("unknown keyword argument %q", name)
		}
		bound[i] = v
		set[i] = true
	}

	in := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		pt := fnType.In(i)
		if !set[i] || bound[i] == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		rv := reflect.ValueOf(bound[i])
		switch {
		case rv.Type().AssignableTo(pt):
			in[i] = rv
		case rv.Type().ConvertibleTo(pt):
			in[i] = rv.Convert(pt)
		default:
			return nil, fmt.Errorf("argument %s: cannot use %s as %s", d.Params[i], rv.Type(), pt)
		}
	}
	return in, nil
}
