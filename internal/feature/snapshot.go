package feature

import "github.com/roach88/geodiff/internal/geo"

// Snapshot is a normalized dataset: the unit the diff engine compares
// and the store persists. Every snapshot satisfies the invariants
// normalization and keying establish:
//
//   - Fields are canonical names with inferred types, in a fixed order.
//   - Every geometry belongs to GeomType's family; if GeomType is multi,
//     every geometry is multipart.
//   - All coordinates are in the CRS named by the EPSG code.
//   - Once keyed, every record carries a non-empty ID unique within the
//     snapshot, and KeyColumn names the column the ID persists under.
//
// Snapshots are treated as immutable once built. Nothing downstream
// writes into one; stages that change data return a new snapshot.
type Snapshot struct {
	Layer     string
	CRS       int
	Fields    []Field
	GeomType  geo.Type
	KeyColumn string
	Records   []Record
}

// FieldNames returns the canonical field names in snapshot order.
func (s *Snapshot) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field definition.
func (s *Snapshot) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Index builds a lookup from record ID to record. The map is built fresh
// on each call; callers doing repeated lookups should hold on to it.
func (s *Snapshot) Index() map[string]Record {
	idx := make(map[string]Record, len(s.Records))
	for _, rec := range s.Records {
		idx[rec.ID] = rec
	}
	return idx
}
