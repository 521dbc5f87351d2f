package geo

import "fmt"

// UnsupportedGeometryError is returned when a dataset contains a geometry
// outside the supported point, line, and polygon families (for example a
// GeometryCollection, or a feature with no geometry at all).
type UnsupportedGeometryError struct {
	GeoJSONType string
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("geometries of type %s are not supported", e.GeoJSONType)
}
