package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already canonical", in: "park_name", want: "park_name"},
		{name: "uppercase", in: "PARK_NAME", want: "park_name"},
		{name: "spaces to underscore", in: "Park Name", want: "park_name"},
		{name: "whitespace run collapses", in: "Park \t Name", want: "park_name"},
		{name: "edge whitespace trimmed", in: "  Park Name  ", want: "park_name"},
		{name: "punctuation stripped", in: "Area (ha)", want: "area_ha"},
		{name: "hyphen stripped", in: "park-name", want: "parkname"},
		{name: "digits kept", in: "Zone 2", want: "zone_2"},
		{name: "unicode letters kept", in: "Rivière", want: "rivière"},
		{name: "decomposed accents fold", in: "Rivière", want: "rivière"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.in))
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeString, TypeOf(String("x")))
	assert.Equal(t, TypeNumber, TypeOf(Number(1)))
	assert.Equal(t, TypeBool, TypeOf(Bool(false)))
	assert.Equal(t, TypeUnknown, TypeOf(Null{}))
	assert.Equal(t, TypeUnknown, TypeOf(nil))
}

func TestCombineTypes(t *testing.T) {
	tests := []struct {
		name string
		a, b FieldType
		want FieldType
	}{
		{name: "same type", a: TypeString, b: TypeString, want: TypeString},
		{name: "unknown absorbs left", a: TypeUnknown, b: TypeNumber, want: TypeNumber},
		{name: "unknown absorbs right", a: TypeBool, b: TypeUnknown, want: TypeBool},
		{name: "conflict is mixed", a: TypeString, b: TypeNumber, want: TypeMixed},
		{name: "mixed stays mixed", a: TypeMixed, b: TypeNumber, want: TypeMixed},
		{name: "all unknown", a: TypeUnknown, b: TypeUnknown, want: TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CombineTypes(tt.a, tt.b))
		})
	}
}

func TestTypesCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b FieldType
		want bool
	}{
		{name: "same type", a: TypeNumber, b: TypeNumber, want: true},
		{name: "unknown with anything", a: TypeUnknown, b: TypeBool, want: true},
		{name: "anything with unknown", a: TypeString, b: TypeUnknown, want: true},
		{name: "mixed with string", a: TypeMixed, b: TypeString, want: true},
		{name: "string with mixed", a: TypeString, b: TypeMixed, want: true},
		{name: "string with number", a: TypeString, b: TypeNumber, want: false},
		{name: "mixed with number", a: TypeMixed, b: TypeNumber, want: false},
		{name: "bool with number", a: TypeBool, b: TypeNumber, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypesCompatible(tt.a, tt.b))
		})
	}
}
