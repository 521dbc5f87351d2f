package feature

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Value is one attribute value in a record. The set of implementations
// is sealed: String, Number, Bool, and Null. Sources with richer type
// systems (integers, dates, decimals) are folded into these four on
// ingest so that equality and hashing behave identically no matter which
// protocol produced the data.
type Value interface {
	// value is unexported to seal the interface.
	value()
}

// String is a text value. Comparison is exact; Unicode normalization is
// applied only when rendering for hash input, never for equality.
type String string

func (String) value() {}

// Number is a numeric value. All source numerics (ints, floats) are
// carried as float64.
type Number float64

func (Number) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Null is the typed absence of a value. A Null equals only another Null:
// it is distinct from the empty string, from zero, and from the literal
// string "NULL".
type Null struct{}

func (Null) value() {}

// Equal reports whether two values are equal under type-aware semantics:
// values of different types are never equal, and Null equals only Null.
// A nil Value is treated as Null.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		if b == nil {
			return true
		}
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	default:
		return false
	}
}

// NullSentinel is the rendering of Null inside hash input strings. It is
// never used for equality; Equal keeps Null distinct from String("NULL").
const NullSentinel = "NULL"

// CanonicalString renders a value in the fixed form used to build key
// hash inputs: NFC-normalized text, shortest round-trip decimal for
// numbers, "true"/"false" for booleans, and the NullSentinel for Null.
// A nil Value renders as Null.
func CanonicalString(v Value) string {
	switch val := v.(type) {
	case String:
		return norm.NFC.String(string(val))
	case Number:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return NullSentinel
	}
}

// ValueOf converts a dynamically typed source value (JSON or YAML
// decoding output, driver scan results) into the sealed Value set.
// Unrecognized types are rendered through fmt and carried as String so
// that exotic source columns degrade to text instead of failing the load.
func ValueOf(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case float32:
		return Number(val)
	case int:
		return Number(val)
	case int32:
		return Number(val)
	case int64:
		return Number(val)
	case uint:
		return Number(val)
	case uint64:
		return Number(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return String(val.String())
		}
		return Number(f)
	default:
		return String(fmt.Sprint(val))
	}
}
