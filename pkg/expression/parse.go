// Package expression provides the formula AST and a parser for
// spreadsheet formulas.
package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type parser struct {
	in      []byte
	offset  int
	no      int
	current rune

	unit  string
	sheet string
}

func NewParser(in string, unit, sheet string) *parser {
	p := &parser{
		in:    []byte(in),
		unit:  unit,
		sheet: sheet,
	}
	p.Next()
	return p
}

func (s *parser) Next() rune {
	if s.offset >= len(s.in) {
		s.current = 0
		return 0
	}
	r, size := utf8.DecodeRune(s.in[s.offset:])
	s.current = r
	if r == utf8.RuneError {
		return r
	}
	s.offset += size
	s.no++
	return r
}

// Peek returns the rune following the current one.
func (s *parser) Peek() rune {
	if s.offset >= len(s.in) {
		return 0
	}
	r, _ := utf8.DecodeRune(s.in[s.offset:])
	return r
}

func (s *parser) ParseRune(r rune) error {
	if s.Current() != r {
		return s.Errorf("%q expected", string(r))
	}
	s.Next()
	return nil
}

func (s *parser) Current() rune {
	return s.current
}

func (s *parser) Position() int {
	return s.no
}

func (s *parser) Errorf(msg string, args ...interface{}) error {
	return fmt.Errorf("%q %d: %s", string(s.in), s.Position(), fmt.Sprintf(msg, args...))
}

func (s *parser) SkipBlank() rune {
	n := s.Current()
	for unicode.IsSpace(n) {
		n = s.Next()
	}
	return n
}

////////////////////////////////////////////////////////////////////////////////

func (s *parser) parseExpression() (Node, error) {
	return s.parseComparison()
}

func (s *parser) binary(next func() (Node, error), ops func() (string, bool)) (Node, error) {
	o1, err := next()
	if err != nil {
		return nil, err
	}
	for {
		s.SkipBlank()
		op, ok := ops()
		if !ok {
			return o1, nil
		}
		o2, err := next()
		if err != nil {
			return nil, err
		}
		o1 = &Binary{
			Op:    op,
			Left:  o1,
			Right: o2,
		}
	}
}

// single consumes one of the given operator runes.
func (s *parser) single(runes string) func() (string, bool) {
	return func() (string, bool) {
		c := s.Current()
		if c == 0 || !strings.ContainsRune(runes, c) {
			return "", false
		}
		s.Next()
		return string(c), true
	}
}

func (s *parser) comparison() (string, bool) {
	switch s.Current() {
	case '=':
		s.Next()
		return "=", true
	case '<':
		switch s.Next() {
		case '=':
			s.Next()
			return "<=", true
		case '>':
			s.Next()
			return "<>", true
		}
		return "<", true
	case '>':
		if s.Next() == '=' {
			s.Next()
			return ">=", true
		}
		return ">", true
	}
	return "", false
}

func (s *parser) parseComparison() (Node, error) {
	return s.binary(s.parseConcat, s.comparison)
}

func (s *parser) parseConcat() (Node, error) {
	return s.binary(s.parseAdditive, s.single("&"))
}

func (s *parser) parseAdditive() (Node, error) {
	return s.binary(s.parseMultiplicative, s.single("+-"))
}

func (s *parser) parseMultiplicative() (Node, error) {
	return s.binary(s.parsePower, s.single("*/"))
}

func (s *parser) parsePower() (Node, error) {
	return s.binary(s.parseUnary, s.single("^"))
}

func (s *parser) parseUnary() (Node, error) {
	switch n := s.SkipBlank(); n {
	case '-', '+':
		s.Next()
		o, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: string(n), Operand: o}, nil
	}
	return s.parsePostfix()
}

func (s *parser) parsePostfix() (Node, error) {
	o, err := s.parseOperand()
	if err != nil {
		return nil, err
	}
	for s.SkipBlank() == '%' {
		s.Next()
		o = &Unary{Op: "%", Operand: o}
	}
	return o, nil
}

func (s *parser) parseOperand() (Node, error) {
	n := s.SkipBlank()
	switch {
	case unicode.IsDigit(n) || n == '.':
		return s.parseNumber()
	case n == '"':
		return s.parseText()
	case n == '#':
		return s.parseError()
	case n == '(':
		s.Next()
		e, err := s.parseExpression()
		if err != nil {
			return nil, err
		}
		s.SkipBlank()
		err = s.ParseRune(')')
		if err != nil {
			return nil, err
		}
		return e, nil
	case n == '@', n == '[', n == '\'', n == '$', isWordStart(n):
		return s.parseName()
	case n == 0:
		return nil, s.Errorf("unexpected end of formula")
	default:
		return nil, s.Errorf("unexpected character %q for operand", string(n))
	}
}

func (s *parser) parseNumber() (Node, error) {
	start := s.offset - utf8.RuneLen(s.Current())
	n := s.Current()
	for unicode.IsDigit(n) || n == '.' {
		n = s.Next()
	}
	if n == 'e' || n == 'E' {
		n = s.Next()
		if n == '+' || n == '-' {
			n = s.Next()
		}
		if !unicode.IsDigit(n) {
			return nil, s.Errorf("exponent must be a sequence of digits, but found %q", string(n))
		}
		for unicode.IsDigit(n) {
			n = s.Next()
		}
	}
	end := s.offset
	if n != 0 {
		end -= utf8.RuneLen(n)
	}
	f, err := strconv.ParseFloat(string(s.in[start:end]), 64)
	if err != nil {
		return nil, s.Errorf("invalid number %q", string(s.in[start:end]))
	}
	return &Number{Value: f}, nil
}

func (s *parser) parseText() (Node, error) {
	var b strings.Builder
	n := s.Next()
	for {
		switch n {
		case 0:
			return nil, s.Errorf("unterminated string")
		case '"':
			n = s.Next()
			if n != '"' {
				return &Text{Value: b.String()}, nil
			}
		}
		b.WriteRune(n)
		n = s.Next()
	}
}

func (s *parser) parseError() (Node, error) {
	code := "#"
	n := s.Next()
	for unicode.IsLetter(n) || unicode.IsDigit(n) || n == '/' {
		code += string(n)
		n = s.Next()
	}
	if n == '!' || n == '?' {
		code += string(n)
		s.Next()
	}
	k, ok := value.ParseErrorKind(strings.ToUpper(code))
	if !ok {
		return nil, s.Errorf("unknown error literal %q", code)
	}
	return &ErrorLiteral{Kind: k}, nil
}

func (s *parser) parseWord() string {
	word := ""
	n := s.Current()
	for isWordChar(n) {
		word += string(n)
		n = s.Next()
	}
	return word
}

func (s *parser) parseQuoted() (string, error) {
	var b strings.Builder
	n := s.Next()
	for {
		switch n {
		case 0:
			return "", s.Errorf("unterminated sheet name")
		case '\'':
			n = s.Next()
			if n != '\'' {
				return b.String(), nil
			}
		}
		b.WriteRune(n)
		n = s.Next()
	}
}

// parseName parses function calls, booleans, names and
// (possibly qualified) references.
func (s *parser) parseName() (Node, error) {
	unit, sheet := s.unit, s.sheet
	qualified := false

	if s.Current() == '[' {
		s.Next()
		u := ""
		for s.Current() != ']' {
			if s.Current() == 0 {
				return nil, s.Errorf("unterminated unit name")
			}
			u += string(s.Current())
			s.Next()
		}
		s.Next()
		unit, qualified = u, true
	}

	var word string
	if s.Current() == '\'' {
		name, err := s.parseQuoted()
		if err != nil {
			return nil, err
		}
		if s.Current() != '!' {
			return nil, s.Errorf("'!' expected after sheet name")
		}
		word = name
	} else if s.Current() != '@' {
		word = s.parseWord()
	}

	if s.Current() == '!' {
		s.Next()
		sheet, qualified = word, true
		if s.Current() == '@' {
			return s.parseFormulaRef(unit, sheet)
		}
		word = s.parseWord()
		if !isCellName(word) {
			return nil, s.Errorf("cell reference expected after sheet %q", sheet)
		}
		return s.parseReference(word, unit, sheet)
	}
	if s.Current() == '@' {
		if word != "" {
			return nil, s.Errorf("unexpected '@' after %q", word)
		}
		return s.parseFormulaRef(unit, sheet)
	}
	if qualified {
		return nil, s.Errorf("sheet expected after unit %q", unit)
	}
	if word == "" {
		return nil, s.Errorf("name expected")
	}

	if s.SkipBlank() == '(' {
		if strings.Contains(word, "$") {
			return nil, s.Errorf("invalid function name %q", word)
		}
		return s.parseCall(word)
	}
	switch strings.ToUpper(word) {
	case "TRUE":
		return &Boolean{Value: true}, nil
	case "FALSE":
		return &Boolean{Value: false}, nil
	}
	if isCellName(word) {
		return s.parseReference(word, unit, sheet)
	}
	if strings.Contains(word, "$") {
		return nil, s.Errorf("invalid name %q", word)
	}
	return &Name{Name: word}, nil
}

func (s *parser) parseFormulaRef(unit, sheet string) (Node, error) {
	s.Next()
	id := s.parseWord()
	if id == "" {
		return nil, s.Errorf("formula id expected")
	}
	return &FormulaRef{Ref: reference.FormulaRef{Unit: unit, Sheet: sheet, FormulaId: id}}, nil
}

func (s *parser) parseReference(word, unit, sheet string) (Node, error) {
	r1, c1, err := reference.ParseCell(word)
	if err != nil {
		return nil, s.Errorf("%s", err)
	}
	if s.Current() != ':' {
		return &CellRef{Ref: reference.NewCellRef(unit, sheet, r1, c1)}, nil
	}
	s.Next()
	end := s.parseWord()
	if !isCellName(end) {
		return nil, s.Errorf("range end expected")
	}
	r2, c2, err := reference.ParseCell(end)
	if err != nil {
		return nil, s.Errorf("%s", err)
	}
	return &RangeRef{Ref: reference.NewRangeRef(unit, sheet, r1, c1, r2, c2)}, nil
}

func (s *parser) parseCall(name string) (Node, error) {
	s.Next()
	call := &Call{Name: strings.ToUpper(name)}
	if s.SkipBlank() == ')' {
		s.Next()
		return call, nil
	}
	for {
		a, err := s.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, a)
		switch s.SkipBlank() {
		case ',':
			s.Next()
		case ')':
			s.Next()
			return call, nil
		default:
			return nil, s.Errorf("',' or ')' expected")
		}
	}
}

func isWordStart(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || r == '_')
}

func isWordChar(r rune) bool {
	return isWordStart(r) || unicode.IsDigit(r) || r == '.' || r == '$'
}

// isCellName checks for the pattern $?letters$?digits.
func isCellName(w string) bool {
	i := 0
	if i < len(w) && w[i] == '$' {
		i++
	}
	l := i
	for i < len(w) && unicode.IsLetter(rune(w[i])) {
		i++
	}
	if i == l || i-l > 3 {
		return false
	}
	if i < len(w) && w[i] == '$' {
		i++
	}
	d := i
	for i < len(w) && unicode.IsDigit(rune(w[i])) {
		i++
	}
	return i > d && i == len(w)
}

// Parse parses a formula in the context of the given unit and sheet.
// A leading "=" is optional.
func Parse(in string, unit, sheet string) (*Formula, error) {
	src := strings.TrimPrefix(strings.TrimSpace(in), "=")
	p := NewParser(src, unit, sheet)

	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.SkipBlank() != 0 {
		return nil, p.Errorf("unexpected character %q", string(p.Current()))
	}
	return &Formula{
		Source: in,
		Unit:   unit,
		Sheet:  sheet,
		Root:   n,
	}, nil
}
