package gpkg

import "fmt"

// NotAGeoPackageError is returned by Open when the file exists but does
// not carry the GeoPackage application id.
type NotAGeoPackageError struct {
	Path string
}

func (e *NotAGeoPackageError) Error() string {
	return fmt.Sprintf("%s is not a geopackage", e.Path)
}

// LayerNotFoundError is returned when a read names a layer the
// GeoPackage does not contain.
type LayerNotFoundError struct {
	Layer string
}

func (e *LayerNotFoundError) Error() string {
	return fmt.Sprintf("layer %s not found", e.Layer)
}
