// Package value provides the typed value algebra of the formula engine.
//
// Values are immutable. Formula errors are values of type Error and
// flow through all operators: if an operand is an Error, the result
// is this error (the left one, if both operands are errors).
// References are never resolved here, they have to be materialized
// by the caller before an operator is applied.
package value

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindBlank Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindError
	KindArray
	KindReference
)

var kindNames = map[Kind]string{
	KindBlank:     "blank",
	KindNumber:    "number",
	KindText:      "text",
	KindBoolean:   "boolean",
	KindError:     "error",
	KindArray:     "array",
	KindReference: "reference",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Value interface {
	Kind() Kind
	String() string
}

// Reference is an unresolved pointer to cells or other formula results.
// It is implemented outside of this package.
type Reference interface {
	Value
	Address() string
}

////////////////////////////////////////////////////////////////////////////////

type Number float64

func (Number) Kind() Kind { return KindNumber }

func (n Number) String() string {
	return FormatNumber(float64(n))
}

type Text string

func (Text) Kind() Kind { return KindText }

func (t Text) String() string {
	return string(t)
}

type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }

func (b Boolean) String() string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Blank is the value of an empty cell.
type Blank struct{}

func (Blank) Kind() Kind { return KindBlank }

func (Blank) String() string {
	return ""
}

////////////////////////////////////////////////////////////////////////////////

func IsError(v Value) bool {
	return v != nil && v.Kind() == KindError
}

func IsReference(v Value) bool {
	return v != nil && v.Kind() == KindReference
}

func IsBlank(v Value) bool {
	return v == nil || v.Kind() == KindBlank
}

// FirstError returns the first error value of the given list.
func FirstError(values ...Value) (Error, bool) {
	for _, v := range values {
		if e, ok := v.(Error); ok {
			return e, true
		}
	}
	return Error{}, false
}

// Equal checks two values for identity. It is used to detect
// unchanged results and is stricter than the comparison operator,
// for example text is compared case-sensitive.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Array:
		y := b.(*Array)
		if x.rows != y.rows || x.cols != y.cols {
			return false
		}
		for i := range x.data {
			if !Equal(x.data[i], y.data[i]) {
				return false
			}
		}
		return true
	case Reference:
		return x.Address() == b.(Reference).Address()
	default:
		return a == b
	}
}

// Literal parses user input of a non-formula cell the way
// a spreadsheet does: numbers, booleans and error codes are detected,
// everything else is text.
func Literal(s string) Value {
	if s == "" {
		return Blank{}
	}
	if n, ok := parseNumber(s); ok {
		return Number(n)
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return Boolean(true)
	case "FALSE":
		return Boolean(false)
	}
	if k, ok := ParseErrorKind(strings.TrimSpace(s)); ok {
		return NewError(k)
	}
	return Text(s)
}
