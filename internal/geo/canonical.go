package geo

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
)

// Normalize returns a copy of g rewritten in normal form:
//
//   - Point: unchanged.
//   - MultiPoint: members sorted ascending.
//   - LineString: reversed when its reverse sorts lower.
//   - Polygon: rings closed and rotated to start at their minimum vertex,
//     shell wound clockwise, holes counter-clockwise and sorted ascending.
//   - MultiLineString / MultiPolygon: members rewritten, then sorted
//     ascending.
//
// Points compare lexicographically on (x, y); sequences compare point by
// point with ties broken by length.
func Normalize(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Point:
		return v
	case orb.MultiPoint:
		out := v.Clone()
		slices.SortFunc(out, comparePoints)
		return out
	case orb.LineString:
		return normalizeLine(v.Clone())
	case orb.MultiLineString:
		out := v.Clone()
		for i := range out {
			out[i] = normalizeLine(out[i])
		}
		slices.SortFunc(out, func(a, b orb.LineString) int {
			return comparePointSeqs(a, b)
		})
		return out
	case orb.Polygon:
		return normalizePolygon(v.Clone())
	case orb.MultiPolygon:
		out := v.Clone()
		for i := range out {
			out[i] = normalizePolygon(out[i])
		}
		slices.SortFunc(out, comparePolygons)
		return out
	default:
		return orb.Clone(g)
	}
}

// normalizeLine orients a line string so the lower end comes first,
// comparing the full sequence against its reverse to break endpoint ties.
func normalizeLine(ls orb.LineString) orb.LineString {
	if reversedSortsLower(ls) {
		ls.Reverse()
	}
	return ls
}

// normalizeRing closes r if its endpoints differ, winds it in the
// requested orientation, and rotates it to start at its minimum vertex.
// Zero-area rings have no meaningful winding and are oriented like lines.
func normalizeRing(r orb.Ring, o orb.Orientation) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	switch r.Orientation() {
	case o:
	case -o:
		r.Reverse()
	default:
		if reversedSortsLower(r) {
			r.Reverse()
		}
	}
	return rotateRing(r)
}

// rotateRing rotates a closed ring so its minimum vertex comes first,
// preserving the closing point.
func rotateRing(r orb.Ring) orb.Ring {
	n := len(r) - 1 // distinct vertices
	if n < 1 {
		return r
	}
	min := 0
	for i := 1; i < n; i++ {
		if comparePoints(r[i], r[min]) < 0 {
			min = i
		}
	}
	if min == 0 {
		return r
	}
	out := make(orb.Ring, 0, len(r))
	for i := 0; i < n; i++ {
		out = append(out, r[(min+i)%n])
	}
	return append(out, out[0])
}

func normalizePolygon(p orb.Polygon) orb.Polygon {
	if len(p) == 0 {
		return p
	}
	p[0] = normalizeRing(p[0], orb.CW)
	for i := 1; i < len(p); i++ {
		p[i] = normalizeRing(p[i], orb.CCW)
	}
	if len(p) > 2 {
		holes := p[1:]
		slices.SortFunc(holes, func(a, b orb.Ring) int {
			return comparePointSeqs(a, b)
		})
	}
	return p
}

// reversedSortsLower reports whether the reverse of pts sorts strictly
// lower than pts itself.
func reversedSortsLower(pts []orb.Point) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		if c := comparePoints(pts[n-1-i], pts[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func comparePoints(a, b orb.Point) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

func comparePointSeqs(a, b []orb.Point) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePoints(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func comparePolygons(a, b orb.Polygon) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePointSeqs(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
