// Package functions provides the function library of the formula
// engine: the function abstraction, the registry and the compiler
// turning formula ASTs into evaluable programs.
package functions

import (
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Resolver materializes references.
type Resolver interface {
	Resolve(v value.Value) value.Value
}

// Context is the evaluation context passed to functions.
// There is no global state, everything needed to evaluate a
// formula is found here.
type Context struct {
	Unit     string
	Sheet    string
	Resolver Resolver
}

func NewContext(unit, sheet string, r Resolver) *Context {
	return &Context{Unit: unit, Sheet: sheet, Resolver: r}
}

// Resolve materializes a reference. Other values are returned as they are.
func (c *Context) Resolve(v value.Value) value.Value {
	if !value.IsReference(v) {
		return v
	}
	if c == nil || c.Resolver == nil {
		return value.ErrorRef
	}
	return c.Resolver.Resolve(v)
}

// Function is a callable of the library. Call gets the arguments after
// the standard argument handling done by Invoke.
type Function interface {
	Name() string
	// Arity returns the minimal and maximal number of arguments,
	// a maximum of -1 means variadic.
	Arity() (min, max int)
	Call(ctx *Context, args []value.Value) value.Value
}

// ErrorAcceptor is implemented by functions which handle error
// arguments on their own.
type ErrorAcceptor interface {
	AcceptsErrors() bool
}

// ReferenceAcceptor is implemented by functions which want to see
// unresolved references.
type ReferenceAcceptor interface {
	AcceptsReferences() bool
}

// Thunk evaluates a deferred argument.
type Thunk func() value.Value

// LazyFunction gets its arguments unevaluated, it is responsible
// for resolving and error handling by itself.
type LazyFunction interface {
	Function
	CallLazy(ctx *Context, args []Thunk) value.Value
}

func acceptsErrors(f Function) bool {
	a, ok := f.(ErrorAcceptor)
	return ok && a.AcceptsErrors()
}

func acceptsReferences(f Function) bool {
	a, ok := f.(ReferenceAcceptor)
	return ok && a.AcceptsReferences()
}

// Invoke calls a function with the standard argument handling:
// the first error argument is returned, then references are
// materialized and the error check is repeated on the
// materialized values.
func Invoke(ctx *Context, f Function, args []value.Value) value.Value {
	checkErrors := !acceptsErrors(f)
	if checkErrors {
		if e, ok := value.FirstError(args...); ok {
			return e
		}
	}
	if !acceptsReferences(f) {
		resolved := make([]value.Value, len(args))
		for i, a := range args {
			resolved[i] = ctx.Resolve(a)
		}
		args = resolved
		if checkErrors {
			if e, ok := value.FirstError(args...); ok {
				return e
			}
		}
	}
	return f.Call(ctx, args)
}

////////////////////////////////////////////////////////////////////////////////

type Option func(f *function)

// AcceptErrors passes error arguments to the function.
func AcceptErrors() Option {
	return func(f *function) {
		f.errors = true
	}
}

// AcceptReferences passes unresolved references to the function.
func AcceptReferences() Option {
	return func(f *function) {
		f.references = true
	}
}

type function struct {
	name       string
	min, max   int
	errors     bool
	references bool
	call       func(ctx *Context, args []value.Value) value.Value
}

var (
	_ ErrorAcceptor     = (*function)(nil)
	_ ReferenceAcceptor = (*function)(nil)
)

// New creates a function from a call implementation.
func New(name string, min, max int, call func(ctx *Context, args []value.Value) value.Value, opts ...Option) Function {
	f := &function{
		name: name,
		min:  min,
		max:  max,
		call: call,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *function) Name() string {
	return f.name
}

func (f *function) Arity() (int, int) {
	return f.min, f.max
}

func (f *function) AcceptsErrors() bool {
	return f.errors
}

func (f *function) AcceptsReferences() bool {
	return f.references
}

func (f *function) Call(ctx *Context, args []value.Value) value.Value {
	return f.call(ctx, args)
}

type lazy struct {
	function
	lazy func(ctx *Context, args []Thunk) value.Value
}

var _ LazyFunction = (*lazy)(nil)

// NewLazy creates a function evaluating its arguments on demand.
func NewLazy(name string, min, max int, call func(ctx *Context, args []Thunk) value.Value) LazyFunction {
	l := &lazy{
		function: function{name: name, min: min, max: max},
		lazy:     call,
	}
	l.call = func(ctx *Context, args []value.Value) value.Value {
		thunks := make([]Thunk, len(args))
		for i, a := range args {
			thunks[i] = constant(a)
		}
		return l.lazy(ctx, thunks)
	}
	return l
}

func (l *lazy) CallLazy(ctx *Context, args []Thunk) value.Value {
	return l.lazy(ctx, args)
}

func constant(v value.Value) Thunk {
	return func() value.Value { return v }
}
