package functions

import (
	"fmt"

	"github.com/mandelsoft/fxengine/pkg/expression"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Program is a compiled formula. All function targets are resolved
// at compile time, evaluation does no name lookup.
type Program interface {
	Eval(ctx *Context) value.Value
}

type ProgramFunc func(ctx *Context) value.Value

func (p ProgramFunc) Eval(ctx *Context) value.Value {
	return p(ctx)
}

type program struct {
	root ProgramFunc
}

// Eval evaluates the formula and materializes a resulting reference.
func (p *program) Eval(ctx *Context) value.Value {
	v := p.root(ctx)
	if value.IsReference(v) {
		v = ctx.Resolve(v)
	}
	if v == nil {
		return value.Blank{}
	}
	return v
}

// Compile compiles a formula AST.
func (r *Registry) Compile(n expression.Node) (Program, error) {
	root, err := r.compile(n)
	if err != nil {
		return nil, err
	}
	return &program{root: root}, nil
}

func constantProgram(v value.Value) ProgramFunc {
	return func(*Context) value.Value { return v }
}

func (r *Registry) compile(n expression.Node) (ProgramFunc, error) {
	switch x := n.(type) {
	case *expression.Number:
		return constantProgram(value.Number(x.Value)), nil
	case *expression.Text:
		return constantProgram(value.Text(x.Value)), nil
	case *expression.Boolean:
		return constantProgram(value.Boolean(x.Value)), nil
	case *expression.ErrorLiteral:
		return constantProgram(value.NewError(x.Kind)), nil
	case *expression.Name:
		return constantProgram(value.ErrorName), nil
	case *expression.CellRef:
		return constantProgram(x.Ref), nil
	case *expression.RangeRef:
		return constantProgram(x.Ref), nil
	case *expression.FormulaRef:
		return constantProgram(x.Ref), nil
	case *expression.Call:
		f, ok := r.Lookup(x.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", x.Name, ErrUnknownFunction)
		}
		if err := CheckArity(f, len(x.Args)); err != nil {
			return nil, err
		}
		return r.call(f, x.Args...)
	case *expression.Binary:
		f := binaryOperators[x.Op]
		if f == nil {
			return nil, fmt.Errorf("unknown operator %q", x.Op)
		}
		return r.call(f, x.Left, x.Right)
	case *expression.Unary:
		f := unaryOperators[x.Op]
		if f == nil {
			return nil, fmt.Errorf("unknown unary operator %q", x.Op)
		}
		return r.call(f, x.Operand)
	default:
		return nil, fmt.Errorf("unsupported node type %T", n)
	}
}

func (r *Registry) call(f Function, nodes ...expression.Node) (ProgramFunc, error) {
	args := make([]ProgramFunc, len(nodes))
	for i, a := range nodes {
		p, err := r.compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = p
	}

	if l, ok := f.(LazyFunction); ok {
		return func(ctx *Context) value.Value {
			thunks := make([]Thunk, len(args))
			for i, a := range args {
				a := a
				thunks[i] = func() value.Value { return a(ctx) }
			}
			return l.CallLazy(ctx, thunks)
		}, nil
	}
	checkErrors := !acceptsErrors(f)
	return func(ctx *Context) value.Value {
		values := make([]value.Value, len(args))
		for i, a := range args {
			values[i] = a(ctx)
			if checkErrors && value.IsError(values[i]) {
				return values[i]
			}
		}
		return Invoke(ctx, f, values)
	}, nil
}
