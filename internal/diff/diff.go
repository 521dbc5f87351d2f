// Package diff compares two keyed snapshots of the same layer and
// partitions their records into new, deleted, modified, and unchanged.
//
// The engine is a pure function of its inputs: no clock, no I/O, no
// hidden state, and the inputs are never written to. Records are matched
// solely by identifier; the outer join of the two key sets drives the
// classification, and every record of both snapshots lands in exactly
// one partition.
//
// Attribute equality is type-aware and exact. Geometry equality is
// positional within a linear tolerance, evaluated on canonical normal
// forms so that vertex order, ring winding, and single/multi
// representation differences are invisible, mirroring how synthetic keys
// hash geometry.
package diff

import (
	"sort"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

// Default suffixes labelling before and after columns in rendered field
// changes.
const (
	DefaultSuffixA = "a"
	DefaultSuffixB = "b"
)

// Options controls one comparison.
type Options struct {
	// Tolerance is the linear distance, in CRS units, below which
	// coordinate differences are ignored. Zero means exact.
	Tolerance float64

	// SuffixA and SuffixB label the two sides in rendered output.
	// Empty values take the defaults "a" and "b".
	SuffixA string
	SuffixB string
}

// Diff compares an old snapshot a against a new snapshot b.
//
// Preconditions are checked in a fixed order before any record is
// touched: matching CRS, a non-empty set of shared attribute fields,
// compatible types on every shared field, and matching geometry
// families. Both snapshots must already be keyed; records with missing
// or repeated identifiers are rejected.
func Diff(a, b *feature.Snapshot, opts Options) (*ChangeSet, error) {
	if a.CRS != b.CRS {
		return nil, &feature.CRSMismatchError{LayerA: a.Layer, LayerB: b.Layer, CRSA: a.CRS, CRSB: b.CRS}
	}

	shared, err := sharedFields(a, b)
	if err != nil {
		return nil, err
	}

	if a.GeomType.Family != b.GeomType.Family {
		return nil, &feature.GeometryTypeMismatchError{
			LayerA: a.Layer,
			LayerB: b.Layer,
			TypeA:  a.GeomType.Name(),
			TypeB:  b.GeomType.Name(),
		}
	}

	indexA, err := index(a)
	if err != nil {
		return nil, err
	}
	indexB, err := index(b)
	if err != nil {
		return nil, err
	}

	cs := &ChangeSet{
		LayerA:    a.Layer,
		LayerB:    b.Layer,
		Fields:    shared,
		KeyColumn: keyColumn(a, b),
		CRS:       b.CRS,
		GeomType:  b.GeomType,
		SuffixA:   opts.SuffixA,
		SuffixB:   opts.SuffixB,
	}
	if cs.SuffixA == "" {
		cs.SuffixA = DefaultSuffixA
	}
	if cs.SuffixB == "" {
		cs.SuffixB = DefaultSuffixB
	}

	for _, id := range unionIDs(indexA, indexB) {
		recA, inA := indexA[id]
		recB, inB := indexB[id]
		switch {
		case !inA:
			cs.New = append(cs.New, recB)
		case !inB:
			cs.Deleted = append(cs.Deleted, recA)
		default:
			classify(cs, shared, recA, recB, opts.Tolerance)
		}
	}
	return cs, nil
}

// classify buckets one matched record pair by its attribute and
// geometry axes.
func classify(cs *ChangeSet, shared []feature.Field, recA, recB feature.Record, tol float64) {
	var changes []FieldChange
	for _, f := range shared {
		va, vb := recA.Attr(f.Name), recB.Attr(f.Name)
		if !feature.Equal(va, vb) {
			changes = append(changes, FieldChange{Field: f.Name, Before: va, After: vb})
		}
	}

	geomEqual := geo.EqualWithin(geo.Normalize(recA.Geom), geo.Normalize(recB.Geom), tol)

	switch {
	case len(changes) == 0 && geomEqual:
		cs.Unchanged = append(cs.Unchanged, recB)
	case len(changes) == 0:
		cs.ModifiedGeom = append(cs.ModifiedGeom, recB)
	case geomEqual:
		cs.ModifiedAttr = append(cs.ModifiedAttr, Modification{ID: recB.ID, Changes: changes, Geom: recB.Geom})
	default:
		cs.ModifiedBoth = append(cs.ModifiedBoth, Modification{ID: recB.ID, Changes: changes, Geom: recB.Geom})
	}
}

// sharedFields intersects the two field sets in a's order and verifies
// type compatibility on every survivor.
func sharedFields(a, b *feature.Snapshot) ([]feature.Field, error) {
	var shared []feature.Field
	for _, fa := range a.Fields {
		fb, ok := b.Field(fa.Name)
		if !ok {
			continue
		}
		if !feature.TypesCompatible(fa.Type, fb.Type) {
			return nil, &feature.FieldTypeMismatchError{
				LayerA: a.Layer,
				LayerB: b.Layer,
				Field:  fa.Name,
				TypeA:  fa.Type,
				TypeB:  fb.Type,
			}
		}
		shared = append(shared, feature.Field{Name: fa.Name, Type: feature.CombineTypes(fa.Type, fb.Type)})
	}
	if len(shared) == 0 {
		return nil, &feature.NoCommonFieldsError{LayerA: a.Layer, LayerB: b.Layer}
	}
	return shared, nil
}

// index builds the ID lookup for one snapshot, enforcing that every
// record carries a unique, non-empty identifier.
func index(s *feature.Snapshot) (map[string]feature.Record, error) {
	idx := make(map[string]feature.Record, len(s.Records))
	for _, rec := range s.Records {
		_, dup := idx[rec.ID]
		if rec.ID == "" || dup {
			count := 0
			for _, r := range s.Records {
				if r.ID == rec.ID {
					count++
				}
			}
			return nil, &feature.DuplicateKeyError{Layer: s.Layer, Fields: []string{keyName(s)}, Value: rec.ID, Count: count}
		}
		idx[rec.ID] = rec
	}
	return idx, nil
}

func keyName(s *feature.Snapshot) string {
	if s.KeyColumn != "" {
		return s.KeyColumn
	}
	return "id"
}

func keyColumn(a, b *feature.Snapshot) string {
	if b.KeyColumn != "" {
		return b.KeyColumn
	}
	return a.KeyColumn
}

// unionIDs returns the union of both key sets in ascending order, which
// fixes the record order of every partition.
func unionIDs(a, b map[string]feature.Record) []string {
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
	}
	for id := range b {
		if _, seen := a[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
