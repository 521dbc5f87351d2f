package geo

import (
	"strings"

	"github.com/paulmach/orb"
)

// Family classifies a geometry by dimensional family, ignoring the
// single/multi distinction. Two snapshots are comparable only when their
// families match; a Point layer never diffs against a Polygon layer even
// though both are valid geometries.
type Family string

const (
	FamilyPoint   Family = "point"
	FamilyLine    Family = "line"
	FamilyPolygon Family = "polygon"
)

// Type describes the geometry column of a dataset: the dimensional family
// plus whether features are carried in multipart form.
type Type struct {
	Family Family
	Multi  bool
}

// Name returns the OGC geometry type name, e.g. "MULTIPOLYGON".
func (t Type) Name() string {
	var base string
	switch t.Family {
	case FamilyPoint:
		base = "POINT"
	case FamilyLine:
		base = "LINESTRING"
	case FamilyPolygon:
		base = "POLYGON"
	default:
		return "GEOMETRY"
	}
	if t.Multi {
		return "MULTI" + base
	}
	return base
}

// ParseType resolves an OGC geometry type name, as stored in a
// GeoPackage geometry column definition, back to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "POINT":
		return Type{Family: FamilyPoint}, nil
	case "MULTIPOINT":
		return Type{Family: FamilyPoint, Multi: true}, nil
	case "LINESTRING":
		return Type{Family: FamilyLine}, nil
	case "MULTILINESTRING":
		return Type{Family: FamilyLine, Multi: true}, nil
	case "POLYGON":
		return Type{Family: FamilyPolygon}, nil
	case "MULTIPOLYGON":
		return Type{Family: FamilyPolygon, Multi: true}, nil
	default:
		return Type{}, &UnsupportedGeometryError{GeoJSONType: name}
	}
}

// TypeOf classifies a single geometry. Geometry collections, nil
// geometries, and anything outside the point/line/polygon families are
// rejected with an UnsupportedGeometryError.
func TypeOf(g orb.Geometry) (Type, error) {
	if g == nil {
		return Type{}, &UnsupportedGeometryError{GeoJSONType: "null"}
	}
	switch g.(type) {
	case orb.Point:
		return Type{Family: FamilyPoint}, nil
	case orb.MultiPoint:
		return Type{Family: FamilyPoint, Multi: true}, nil
	case orb.LineString:
		return Type{Family: FamilyLine}, nil
	case orb.MultiLineString:
		return Type{Family: FamilyLine, Multi: true}, nil
	case orb.Polygon:
		return Type{Family: FamilyPolygon}, nil
	case orb.MultiPolygon:
		return Type{Family: FamilyPolygon, Multi: true}, nil
	default:
		return Type{}, &UnsupportedGeometryError{GeoJSONType: g.GeoJSONType()}
	}
}

// Promote returns the multipart form of g: single-part geometries are
// wrapped in a one-member multi of the same family, everything else is
// returned unchanged. The result shares backing arrays with g, so callers
// that intend to mutate must clone first.
func Promote(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Point:
		return orb.MultiPoint{v}
	case orb.LineString:
		return orb.MultiLineString{v}
	case orb.Polygon:
		return orb.MultiPolygon{v}
	default:
		return g
	}
}
