package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// HashBytes returns the canonical byte encoding of g used for synthetic
// record keys: coordinates are snapped to precision, the geometry is
// rewritten in normal form, promoted to its multipart representation, and
// serialized as little-endian WKB.
//
// Snapping happens before normal-form rewriting so that ordering decisions
// (ring rotation, member sort) are made on the grid, not on raw floats.
// Two geometries that snap to the same grid cells therefore yield
// identical bytes regardless of vertex order, winding, or single/multi
// representation.
func HashBytes(g orb.Geometry, precision float64) []byte {
	return wkb.MustMarshal(Promote(Normalize(Snap(g, precision))))
}
