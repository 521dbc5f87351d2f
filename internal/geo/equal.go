package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EqualWithin reports whether two geometries have identical structure and
// coordinates that differ by at most tol in each ordinate. Single-part and
// one-member multipart forms of the same family compare equal; different
// families, part counts, or vertex counts never do.
//
// The comparison is positional: vertices are matched index by index, so
// callers should hand it geometries already in normal form (see
// Normalize). A negative tol is treated as zero, which demands exact
// coordinate equality.
func EqualWithin(a, b orb.Geometry, tol float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if tol < 0 {
		tol = 0
	}
	switch va := Promote(a).(type) {
	case orb.MultiPoint:
		vb, ok := Promote(b).(orb.MultiPoint)
		return ok && pointsWithin(va, vb, tol)
	case orb.MultiLineString:
		vb, ok := Promote(b).(orb.MultiLineString)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !pointsWithin(va[i], vb[i], tol) {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		vb, ok := Promote(b).(orb.MultiPolygon)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if len(va[i]) != len(vb[i]) {
				return false
			}
			for j := range va[i] {
				if !pointsWithin(va[i][j], vb[i][j], tol) {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}

func pointsWithin(a, b []orb.Point, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i][0]-b[i][0]) > tol || math.Abs(a[i][1]-b[i][1]) > tol {
			return false
		}
	}
	return true
}
