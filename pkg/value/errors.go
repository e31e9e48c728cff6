package value

import (
	"fmt"
)

// ErrorKind describes the kind of formula error.
type ErrorKind uint8

const (
	DivideByZero ErrorKind = iota + 1
	InvalidValue
	InvalidReference
	NameNotFound
	NotAvailable
	CircularReference
	InvalidNumber
	Null
)

var errorCodes = map[ErrorKind]string{
	DivideByZero:      "#DIV/0!",
	InvalidValue:      "#VALUE!",
	InvalidReference:  "#REF!",
	NameNotFound:      "#NAME?",
	NotAvailable:      "#N/A",
	CircularReference: "#CYCLE!",
	InvalidNumber:     "#NUM!",
	Null:              "#NULL!",
}

// errorTypes are the numbers returned by ERROR.TYPE.
var errorTypes = map[ErrorKind]int{
	Null:              1,
	DivideByZero:      2,
	InvalidValue:      3,
	InvalidReference:  4,
	NameNotFound:      5,
	InvalidNumber:     6,
	NotAvailable:      7,
	CircularReference: 8,
}

func (k ErrorKind) String() string {
	if c, ok := errorCodes[k]; ok {
		return c
	}
	return fmt.Sprintf("#ERR%d!", uint8(k))
}

// Type returns the error type number used by ERROR.TYPE.
func (k ErrorKind) Type() int {
	return errorTypes[k]
}

func ParseErrorKind(code string) (ErrorKind, bool) {
	for k, c := range errorCodes {
		if c == code {
			return k, true
		}
	}
	return 0, false
}

////////////////////////////////////////////////////////////////////////////////

// Error is the value variant for formula errors.
type Error struct {
	ErrorKind
}

func NewError(k ErrorKind) Error {
	return Error{k}
}

func (Error) Kind() Kind { return KindError }

func (e Error) String() string {
	return e.ErrorKind.String()
}

var (
	ErrorDiv0  = NewError(DivideByZero)
	ErrorValue = NewError(InvalidValue)
	ErrorRef   = NewError(InvalidReference)
	ErrorName  = NewError(NameNotFound)
	ErrorNA    = NewError(NotAvailable)
	ErrorCycle = NewError(CircularReference)
	ErrorNum   = NewError(InvalidNumber)
	ErrorNull  = NewError(Null)
)
