package feature

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FieldType labels the inferred value type of a column.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBool    FieldType = "bool"
	TypeUnknown FieldType = "unknown" // column held no non-null values
	TypeMixed   FieldType = "mixed"   // column held values of conflicting types
)

// Field is one attribute column of a snapshot: a canonical name plus the
// type inferred from the column's values.
type Field struct {
	Name string
	Type FieldType
}

// TypeOf labels a single value. Null values carry no type information
// and label as TypeUnknown.
func TypeOf(v Value) FieldType {
	switch v.(type) {
	case String:
		return TypeString
	case Number:
		return TypeNumber
	case Bool:
		return TypeBool
	default:
		return TypeUnknown
	}
}

// CombineTypes folds the label of one more value into a column's running
// type. Unknown absorbs anything; conflicting labels collapse to mixed.
func CombineTypes(a, b FieldType) FieldType {
	switch {
	case a == b:
		return a
	case a == TypeUnknown:
		return b
	case b == TypeUnknown:
		return a
	default:
		return TypeMixed
	}
}

// TypesCompatible reports whether two column types may be compared
// field-by-field. Unknown is compatible with everything (an all-null
// column constrains nothing), and mixed is compatible with string since
// mixed columns persist as text.
func TypesCompatible(a, b FieldType) bool {
	if a == b || a == TypeUnknown || b == TypeUnknown {
		return true
	}
	if a == TypeMixed && b == TypeString || a == TypeString && b == TypeMixed {
		return true
	}
	return false
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonWordRun    = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// CanonicalName rewrites an arbitrary source column name into canonical
// form: NFC normalization, lowercase, edge whitespace trimmed, internal
// whitespace runs collapsed to a single underscore, and every remaining
// character outside letters, digits, and underscore removed.
//
// The mapping is not injective ("Park Name" and "park_name" collide), so
// normalization verifies injectivity over the fields it keeps and reports
// a SchemaError on collision rather than silently merging columns.
func CanonicalName(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "_")
	return nonWordRun.ReplaceAllString(s, "")
}
