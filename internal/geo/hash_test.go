package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestHashBytes_RepresentationInvariant(t *testing.T) {
	// One square, five representations.
	canon := orb.Polygon{{{0, 0}, {0, 2}, {2, 2}, {2, 0}, {0, 0}}}

	variants := []orb.Geometry{
		orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}, // opposite winding
		orb.Polygon{{{2, 2}, {0, 2}, {0, 0}, {2, 0}, {2, 2}}}, // rotated start
		orb.MultiPolygon{canon},                               // promoted
		orb.Polygon{{{0, 0}, {0, 2}, {2, 2}, {2, 0}}},         // open ring
	}

	want := HashBytes(canon, 0.01)
	for i, g := range variants {
		assert.Equal(t, want, HashBytes(g, 0.01), "variant %d", i)
	}
}

func TestHashBytes_SnapsToPrecision(t *testing.T) {
	a := orb.Point{100.001, 200.002}
	b := orb.Point{100.004, 199.998}
	c := orb.Point{100.3, 200.0}

	assert.Equal(t, HashBytes(a, 0.01), HashBytes(b, 0.01), "points in the same grid cell must hash alike")
	assert.NotEqual(t, HashBytes(a, 0.01), HashBytes(c, 0.01), "points in different cells must not")
}

func TestHashBytes_NegativeZero(t *testing.T) {
	a := orb.Point{-0.001, 0}
	b := orb.Point{0.001, 0}

	assert.Equal(t, HashBytes(a, 0.01), HashBytes(b, 0.01))
}

func TestHashBytes_Deterministic(t *testing.T) {
	g := orb.MultiLineString{
		{{5, 0}, {6, 0}},
		{{0, 0}, {1, 0}},
	}
	assert.Equal(t, HashBytes(g, 0.01), HashBytes(g, 0.01))
}
