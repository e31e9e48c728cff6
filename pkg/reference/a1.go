package reference

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnName converts a 0-based column index into column letters.
func ColumnName(col int) string {
	name := ""
	for col++; col > 0; col = (col - 1) / 26 {
		name = string(rune('A'+(col-1)%26)) + name
	}
	return name
}

// ColumnIndex converts column letters (case-insensitive) into
// a 0-based column index.
func ColumnIndex(letters string) (int, bool) {
	if letters == "" {
		return 0, false
	}
	col := 0
	for _, c := range strings.ToUpper(letters) {
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		col = col*26 + int(c-'A') + 1
		if col > 1<<20 {
			return 0, false
		}
	}
	return col - 1, true
}

func FormatCell(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row+1)
}

// ParseCell parses an unqualified A1 cell name. Absolute markers ($)
// are accepted and ignored.
func ParseCell(s string) (row, col int, err error) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	col, ok := ColumnIndex(s[:i])
	if !ok {
		return 0, 0, fmt.Errorf("invalid cell name %q", s)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 || s[i] == '+' {
		return 0, 0, fmt.Errorf("invalid cell name %q", s)
	}
	return n - 1, col, nil
}

// ParseA1 parses a possibly qualified cell or range address of the
// form [unit]Sheet!A1 or [unit]Sheet!A1:B2. Missing qualifiers are
// taken from the given defaults.
func ParseA1(s string, unit, sheet string) (Ref, error) {
	rest := s
	if strings.HasPrefix(rest, "[") {
		i := strings.Index(rest, "]")
		if i < 0 {
			return nil, fmt.Errorf("unterminated unit in %q", s)
		}
		unit = rest[1:i]
		rest = rest[i+1:]
	}
	if i := strings.LastIndex(rest, "!"); i >= 0 {
		name, err := UnquoteSheet(rest[:i])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		sheet = name
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "@") {
		if len(rest) == 1 {
			return nil, fmt.Errorf("missing formula id in %q", s)
		}
		return FormulaRef{Unit: unit, Sheet: sheet, FormulaId: rest[1:]}, nil
	}
	start, end, isRange := strings.Cut(rest, ":")
	r1, c1, err := ParseCell(start)
	if err != nil {
		return nil, err
	}
	if !isRange {
		return CellRef{Unit: unit, Sheet: sheet, Row: r1, Col: c1}, nil
	}
	r2, c2, err := ParseCell(end)
	if err != nil {
		return nil, err
	}
	return NewRangeRef(unit, sheet, r1, c1, r2, c2), nil
}

// QuoteSheet quotes a sheet name if it is not a plain identifier.
func QuoteSheet(name string) string {
	if IsPlainSheetName(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func UnquoteSheet(name string) (string, error) {
	if !strings.HasPrefix(name, "'") {
		if name == "" {
			return "", fmt.Errorf("empty sheet name")
		}
		return name, nil
	}
	if len(name) < 2 || !strings.HasSuffix(name, "'") {
		return "", fmt.Errorf("unterminated sheet name %s", name)
	}
	return strings.ReplaceAll(name[1:len(name)-1], "''", "'"), nil
}

func IsPlainSheetName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isLetter(c), c == '_':
		case c >= '0' && c <= '9', c == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
