package value

import (
	"math"
	"strconv"
	"strings"
)

// ToNumber converts a scalar value in number context.
// If the conversion is not possible, the returned value is
// the error to use as result.
func ToNumber(v Value) (float64, Value) {
	switch x := v.(type) {
	case nil, Blank:
		return 0, nil
	case Number:
		return float64(x), nil
	case Boolean:
		if x {
			return 1, nil
		}
		return 0, nil
	case Text:
		if n, ok := parseNumber(string(x)); ok {
			return n, nil
		}
		return 0, ErrorValue
	case Error:
		return 0, x
	case *Array:
		if x.rows == 1 && x.cols == 1 {
			return ToNumber(x.data[0])
		}
		return 0, ErrorValue
	default:
		return 0, ErrorValue
	}
}

// ToText converts a scalar value in text context.
func ToText(v Value) (string, Value) {
	switch x := v.(type) {
	case nil, Blank:
		return "", nil
	case Text:
		return string(x), nil
	case Number, Boolean:
		return x.String(), nil
	case Error:
		return "", x
	case *Array:
		if x.rows == 1 && x.cols == 1 {
			return ToText(x.data[0])
		}
		return "", ErrorValue
	default:
		return "", ErrorValue
	}
}

// ToBoolean converts a scalar value in logical context.
// Text is accepted only for "true" and "false" (case-insensitive).
func ToBoolean(v Value) (bool, Value) {
	switch x := v.(type) {
	case nil, Blank:
		return false, nil
	case Boolean:
		return bool(x), nil
	case Number:
		return x != 0, nil
	case Text:
		if b, ok := parseBoolean(string(x)); ok {
			return b, nil
		}
		return false, ErrorValue
	case Error:
		return false, x
	case *Array:
		if x.rows == 1 && x.cols == 1 {
			return ToBoolean(x.data[0])
		}
		return false, ErrorValue
	default:
		return false, ErrorValue
	}
}

// FormatNumber formats a number like a spreadsheet cell
// with general format: integers without decimal point,
// others with up to 15 significant digits.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'G', 15, 64)
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "iInNxX_pP") {
		return 0, false
	}
	pct := strings.HasSuffix(s, "%")
	if pct {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if pct {
		n /= 100
	}
	return n, true
}

func parseBoolean(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// number creates the result of an arithmetic operation.
func number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrorNum
	}
	return Number(f)
}

// NumberOf creates a number value, NaN and infinite values are
// reported as #NUM!.
func NumberOf(f float64) Value {
	return number(f)
}
