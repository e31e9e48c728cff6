package value

import (
	"encoding/json"
	"fmt"
)

// Encoded is the serializable form of a value.
type Encoded struct {
	Type    string      `json:"type"`
	Number  *float64    `json:"number,omitempty"`
	Text    *string     `json:"text,omitempty"`
	Boolean *bool       `json:"boolean,omitempty"`
	Error   string      `json:"error,omitempty"`
	Rows    [][]Encoded `json:"rows,omitempty"`
}

// Encode provides the serializable form of a value. References
// cannot be encoded, nil is encoded as nil.
func Encode(v Value) *Encoded {
	switch x := v.(type) {
	case nil:
		return nil
	case Number:
		f := float64(x)
		return &Encoded{Type: KindNumber.String(), Number: &f}
	case Text:
		s := string(x)
		return &Encoded{Type: KindText.String(), Text: &s}
	case Boolean:
		b := bool(x)
		return &Encoded{Type: KindBoolean.String(), Boolean: &b}
	case Error:
		return &Encoded{Type: KindError.String(), Error: x.String()}
	case Blank:
		return &Encoded{Type: KindBlank.String()}
	case *Array:
		e := &Encoded{Type: KindArray.String(), Rows: make([][]Encoded, x.Rows())}
		for r := range e.Rows {
			e.Rows[r] = make([]Encoded, x.Cols())
			for c := range e.Rows[r] {
				e.Rows[r][c] = *Encode(x.At(r, c))
			}
		}
		return e
	default:
		return &Encoded{Type: KindError.String(), Error: ErrorValue.String()}
	}
}

// Decode returns the value for an encoded value.
func (e *Encoded) Decode() (Value, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Type {
	case KindNumber.String():
		if e.Number == nil {
			return nil, fmt.Errorf("number value without number")
		}
		return Number(*e.Number), nil
	case KindText.String():
		if e.Text == nil {
			return Text(""), nil
		}
		return Text(*e.Text), nil
	case KindBoolean.String():
		return Boolean(e.Boolean != nil && *e.Boolean), nil
	case KindError.String():
		k, ok := ParseErrorKind(e.Error)
		if !ok {
			return nil, fmt.Errorf("unknown error code %q", e.Error)
		}
		return NewError(k), nil
	case KindBlank.String():
		return Blank{}, nil
	case KindArray.String():
		rows := make([][]Value, len(e.Rows))
		for r, row := range e.Rows {
			rows[r] = make([]Value, len(row))
			for c := range row {
				v, err := row[c].Decode()
				if err != nil {
					return nil, fmt.Errorf("array element %d/%d: %w", r, c, err)
				}
				rows[r][c] = v
			}
		}
		return NewArray(rows), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", e.Type)
	}
}

// MarshalValue provides the JSON representation of a value.
func MarshalValue(v Value) ([]byte, error) {
	return json.Marshal(Encode(v))
}

func UnmarshalValue(data []byte) (Value, error) {
	var e *Encoded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.Decode()
}
