package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"

	"github.com/gowebpki/jcs"
	"github.com/modern-go/reflect2"
)

// Optional returns the first non-zero argument.
func Optional[T any](args ...T) T {
	var _nil T
	return OptionalDefaulted(_nil, args...)
}

// OptionalDefaulted returns the first non-zero argument or the default.
func OptionalDefaulted[T any](def T, args ...T) T {
	var _nil T
	for _, e := range args {
		if !reflect.DeepEqual(e, _nil) {
			return e
		}
	}
	return def
}

// HashData provides a sha256 fingerprint. Structured data is hashed
// in its canonical JSON form (RFC 8785), so map order does not
// influence the result. A nil value has an empty fingerprint.
func HashData(d interface{}) string {
	if reflect2.IsNil(d) {
		return ""
	}
	var data []byte
	switch b := d.(type) {
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			panic(err)
		}
		data, err = jcs.Transform(raw)
		if err != nil {
			panic(err)
		}
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
