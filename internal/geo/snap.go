package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Snap returns a copy of g with every coordinate rounded to the nearest
// multiple of precision. A precision of zero or less leaves coordinates
// untouched. Negative zero folds into positive zero so that equal grid
// cells always serialize to identical bytes.
func Snap(g orb.Geometry, precision float64) orb.Geometry {
	if precision <= 0 {
		return orb.Clone(g)
	}
	switch v := g.(type) {
	case orb.Point:
		return snapPoint(v, precision)
	case orb.MultiPoint:
		out := v.Clone()
		snapPoints(out, precision)
		return out
	case orb.LineString:
		out := v.Clone()
		snapPoints(out, precision)
		return out
	case orb.MultiLineString:
		out := v.Clone()
		for i := range out {
			snapPoints(out[i], precision)
		}
		return out
	case orb.Polygon:
		out := v.Clone()
		for i := range out {
			snapPoints(out[i], precision)
		}
		return out
	case orb.MultiPolygon:
		out := v.Clone()
		for i := range out {
			for j := range out[i] {
				snapPoints(out[i][j], precision)
			}
		}
		return out
	default:
		return orb.Clone(g)
	}
}

func snapPoints(pts []orb.Point, precision float64) {
	for i := range pts {
		pts[i] = snapPoint(pts[i], precision)
	}
}

func snapPoint(pt orb.Point, precision float64) orb.Point {
	return orb.Point{snapValue(pt[0], precision), snapValue(pt[1], precision)}
}

func snapValue(v, precision float64) float64 {
	s := math.Round(v/precision) * precision
	if s == 0 {
		return 0
	}
	return s
}
