package expression

import (
	"fmt"
	"strings"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Node is an element of a formula AST.
type Node interface {
	// Format renders the node as formula source relative to
	// the given unit and sheet.
	Format(unit, sheet string) string
}

type Number struct {
	Value float64
}

func (n *Number) Format(string, string) string {
	return value.FormatNumber(n.Value)
}

type Text struct {
	Value string
}

func (n *Text) Format(string, string) string {
	return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"`
}

type Boolean struct {
	Value bool
}

func (n *Boolean) Format(string, string) string {
	return value.Boolean(n.Value).String()
}

type ErrorLiteral struct {
	Kind value.ErrorKind
}

func (n *ErrorLiteral) Format(string, string) string {
	return n.Kind.String()
}

// Name is an identifier not denoting a cell or function.
// Defined names are not supported, it evaluates to #NAME?.
type Name struct {
	Name string
}

func (n *Name) Format(string, string) string {
	return n.Name
}

type CellRef struct {
	Ref reference.CellRef
}

func (n *CellRef) Format(unit, sheet string) string {
	return n.Ref.Format(unit, sheet)
}

type RangeRef struct {
	Ref reference.RangeRef
}

func (n *RangeRef) Format(unit, sheet string) string {
	return n.Ref.Format(unit, sheet)
}

type FormulaRef struct {
	Ref reference.FormulaRef
}

func (n *FormulaRef) Format(unit, sheet string) string {
	return n.Ref.Format(unit, sheet)
}

type Call struct {
	Name string
	Args []Node
}

func (n *Call) Format(unit, sheet string) string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Format(unit, sheet)
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (n *Binary) Format(unit, sheet string) string {
	return fmt.Sprintf("(%s%s%s)", n.Left.Format(unit, sheet), n.Op, n.Right.Format(unit, sheet))
}

// Unary is a prefix operator (- or +) or the postfix operator %.
type Unary struct {
	Op      string
	Operand Node
}

func (n *Unary) Format(unit, sheet string) string {
	if n.Op == "%" {
		return fmt.Sprintf("(%s%%)", n.Operand.Format(unit, sheet))
	}
	return fmt.Sprintf("(%s%s)", n.Op, n.Operand.Format(unit, sheet))
}

////////////////////////////////////////////////////////////////////////////////

// Walk visits the node tree in source order. Children of a node
// are skipped if f returns false.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch x := n.(type) {
	case *Call:
		for _, a := range x.Args {
			Walk(a, f)
		}
	case *Binary:
		Walk(x.Left, f)
		Walk(x.Right, f)
	case *Unary:
		Walk(x.Operand, f)
	}
}

// Formula is a parsed formula with its context.
type Formula struct {
	Source string
	Unit   string
	Sheet  string
	Root   Node
}

// String returns the normalized source.
func (f *Formula) String() string {
	return "=" + f.Root.Format(f.Unit, f.Sheet)
}

// References returns the declared reference set in source order.
func (f *Formula) References() []reference.Ref {
	var result []reference.Ref
	seen := map[string]bool{}
	Walk(f.Root, func(n Node) bool {
		var r reference.Ref
		switch x := n.(type) {
		case *CellRef:
			r = x.Ref
		case *RangeRef:
			r = x.Ref
		case *FormulaRef:
			r = x.Ref
		default:
			return true
		}
		if !seen[r.Address()] {
			seen[r.Address()] = true
			result = append(result, r)
		}
		return true
	})
	return result
}
