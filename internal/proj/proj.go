// Package proj maintains the registry of coordinate reference systems the
// pipeline understands and reprojects geometries between them.
//
// The registry is deliberately small: source data arrives as WGS 84
// lon/lat (EPSG:4326) or web-mercator (EPSG:3857), and everything is
// normalized onto the BC Albers equal-area grid (EPSG:3005) where
// tolerances are metres. Each entry carries a forward and inverse
// projection to and from WGS 84, so any registered pair can be composed.
package proj

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS describes one registered coordinate reference system. Forward
// projects a WGS 84 lon/lat point into the system; Inverse goes back.
type CRS struct {
	Code    int
	Name    string
	WKT     string
	Forward orb.Projection
	Inverse orb.Projection
}

func identity(p orb.Point) orb.Point { return p }

var registry = map[int]CRS{
	4326: {
		Code:    4326,
		Name:    "WGS 84",
		WKT:     wktWGS84,
		Forward: identity,
		Inverse: identity,
	},
	3857: {
		Code:    3857,
		Name:    "WGS 84 / Pseudo-Mercator",
		WKT:     wktWebMercator,
		Forward: project.WGS84.ToMercator,
		Inverse: project.Mercator.ToWGS84,
	},
	3005: {
		Code:    3005,
		Name:    "NAD83 / BC Albers",
		WKT:     wktBCAlbers,
		Forward: bcAlbersForward,
		Inverse: bcAlbersInverse,
	},
}

// Lookup returns the registered definition for an EPSG code.
func Lookup(code int) (CRS, error) {
	crs, ok := registry[code]
	if !ok {
		return CRS{}, &UnknownCRSError{Code: code}
	}
	return crs, nil
}

// Codes returns the registered EPSG codes in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Transform reprojects g from one registered system to another. The input
// is never mutated; when from and to name the same system the result is a
// plain clone.
func Transform(g orb.Geometry, from, to int) (orb.Geometry, error) {
	src, err := Lookup(from)
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(to)
	if err != nil {
		return nil, err
	}
	out := orb.Clone(g)
	if from == to {
		return out, nil
	}
	out = project.Geometry(out, src.Inverse)
	return project.Geometry(out, dst.Forward), nil
}

var epsgPattern = regexp.MustCompile(`^(?:URN:OGC:DEF:CRS:EPSG:[0-9.]*:|EPSG:)?([0-9]+)$`)

// ParseCRS resolves a CRS identifier string to an EPSG code. Accepted
// forms: "EPSG:3005", the OGC URN "urn:ogc:def:crs:EPSG::3005", the
// GeoJSON legacy CRS84 aliases for WGS 84, and bare numerics. The result
// is syntactic only; pass it to Lookup to confirm it is registered.
func ParseCRS(s string) (int, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "CRS84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84":
		return 4326, nil
	}
	m := epsgPattern.FindStringSubmatch(upper)
	if m == nil {
		return 0, &UnknownCRSError{Name: s}
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &UnknownCRSError{Name: s}
	}
	return code, nil
}

// UnknownCRSError is returned for a CRS identifier that cannot be parsed,
// or an EPSG code with no registered definition.
type UnknownCRSError struct {
	Code int
	Name string
}

func (e *UnknownCRSError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unrecognized coordinate reference system %q", e.Name)
	}
	return fmt.Sprintf("coordinate reference system EPSG:%d is not registered", e.Code)
}
