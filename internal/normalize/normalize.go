// Package normalize turns raw source tables into canonical snapshots.
//
// Normalization is the only stage that looks at a dataset's raw shape.
// Everything after it (key generation, diffing, persistence) relies on
// the snapshot invariants established here: canonical field names in a
// fixed order, one geometry family in a uniform single/multi form, and
// every coordinate in the target CRS.
package normalize

import (
	"errors"
	"sort"
	"strings"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
	"github.com/roach88/geodiff/internal/proj"
)

// resolvedField links one requested field to the source column that
// satisfies it and the canonical name it will carry in the snapshot.
type resolvedField struct {
	source    string
	canonical string
}

// Normalize standardizes a raw table into a snapshot in the target CRS,
// keeping only the requested fields. The input table is never mutated.
//
// The stage fails fast, in order: a missing CRS, an empty dataset, a
// requested field the source does not carry (matched case-insensitively),
// two retained fields collapsing to the same canonical name, geometries
// outside the point/line/polygon families, and a dataset mixing families.
// If any geometry in the surviving family is multipart, every record is
// promoted to multipart so the snapshot carries a single uniform type.
func Normalize(t *feature.Table, targetCRS int, fields []string) (*feature.Snapshot, error) {
	if t.CRS == 0 {
		return nil, &feature.MissingCRSError{Layer: t.Layer}
	}
	if len(t.Rows) == 0 {
		return nil, &feature.EmptyDatasetError{Layer: t.Layer}
	}

	resolved, err := resolveFields(t, fields)
	if err != nil {
		return nil, err
	}

	geomType, err := classifyGeometries(t)
	if err != nil {
		return nil, err
	}

	records := make([]feature.Record, len(t.Rows))
	types := make(map[string]feature.FieldType, len(resolved))
	for i, row := range t.Rows {
		attrs := make(map[string]feature.Value, len(resolved))
		for _, rf := range resolved {
			v, ok := row.Attrs[rf.source]
			if !ok || v == nil {
				v = feature.Null{}
			}
			attrs[rf.canonical] = v
			if cur, seen := types[rf.canonical]; seen {
				types[rf.canonical] = feature.CombineTypes(cur, feature.TypeOf(v))
			} else {
				types[rf.canonical] = feature.TypeOf(v)
			}
		}

		g, err := proj.Transform(row.Geom, t.CRS, targetCRS)
		if err != nil {
			return nil, err
		}
		if geomType.Multi {
			g = geo.Promote(g)
		}
		records[i] = feature.Record{Attrs: attrs, Geom: g}
	}

	defs := make([]feature.Field, len(resolved))
	for i, rf := range resolved {
		defs[i] = feature.Field{Name: rf.canonical, Type: types[rf.canonical]}
	}

	return &feature.Snapshot{
		Layer:    t.Layer,
		CRS:      targetCRS,
		Fields:   defs,
		GeomType: geomType,
		Records:  records,
	}, nil
}

// resolveFields matches each requested field against the source columns
// case-insensitively and assigns its canonical name, verifying that the
// canonical mapping stays injective over the retained set.
func resolveFields(t *feature.Table, fields []string) ([]resolvedField, error) {
	resolved := make([]resolvedField, 0, len(fields))
	byCanonical := make(map[string]string, len(fields))

	for _, want := range fields {
		source, ok := matchColumn(t.Fields, want)
		if !ok {
			return nil, &feature.MissingFieldError{Layer: t.Layer, Field: want}
		}
		canonical := feature.CanonicalName(want)
		if prev, dup := byCanonical[canonical]; dup {
			return nil, &feature.SchemaError{
				Layer:     t.Layer,
				FieldA:    prev,
				FieldB:    want,
				Canonical: canonical,
			}
		}
		byCanonical[canonical] = want
		resolved = append(resolved, resolvedField{source: source, canonical: canonical})
	}
	return resolved, nil
}

// matchColumn finds the source column satisfying a requested field name,
// ignoring case and edge whitespace.
func matchColumn(columns []string, want string) (string, bool) {
	w := strings.TrimSpace(want)
	for _, col := range columns {
		if strings.EqualFold(strings.TrimSpace(col), w) {
			return col, true
		}
	}
	return "", false
}

// classifyGeometries determines the snapshot's uniform geometry type:
// the shared family of every row, in multipart form if any row is
// multipart.
func classifyGeometries(t *feature.Table) (geo.Type, error) {
	var (
		families = make(map[geo.Family]bool, 1)
		seen     = make(map[string]bool, 2)
		names    []string
		multi    bool
		family   geo.Family
	)
	for _, row := range t.Rows {
		gt, err := geo.TypeOf(row.Geom)
		if err != nil {
			var unsupported *geo.UnsupportedGeometryError
			if errors.As(err, &unsupported) {
				return geo.Type{}, &feature.UnsupportedGeometryError{
					Layer: t.Layer,
					Types: []string{unsupported.GeoJSONType},
				}
			}
			return geo.Type{}, err
		}
		families[gt.Family] = true
		family = gt.Family
		multi = multi || gt.Multi
		if name := gt.Name(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if len(families) > 1 {
		sort.Strings(names)
		return geo.Type{}, &feature.UnsupportedGeometryError{Layer: t.Layer, Types: names, Mixed: true}
	}
	return geo.Type{Family: family, Multi: multi}, nil
}
