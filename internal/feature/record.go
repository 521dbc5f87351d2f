package feature

import "github.com/paulmach/orb"

// Row is one raw feature as delivered by a source: attributes keyed by
// the source's own column names, geometry in whatever form arrived.
type Row struct {
	Attrs map[string]Value
	Geom  orb.Geometry
}

// Table is an unnormalized dataset. Field names are the source's own,
// in source order; CRS is the EPSG code the source declared, or zero
// when it declared none. A Table makes no promises beyond "this is what
// we were given".
type Table struct {
	Layer  string
	CRS    int
	Fields []string
	Rows   []Row
}

// Record is one feature of a snapshot. Attrs is keyed by canonical field
// name. ID is empty until key generation assigns one; after that it is
// immutable and unique within its snapshot.
type Record struct {
	ID    string
	Attrs map[string]Value
	Geom  orb.Geometry
}

// Attr returns the named attribute, or Null for a field the record does
// not carry.
func (r Record) Attr(name string) Value {
	if v, ok := r.Attrs[name]; ok && v != nil {
		return v
	}
	return Null{}
}

// Duplicate is one record dropped during synthetic key generation
// because an earlier record produced the same key. The full attribute
// map is retained so a human can locate the dropped row in the source.
type Duplicate struct {
	ID    string
	Attrs map[string]Value
}

// DuplicateReport lists the records dropped by key generation, in input
// order. An empty report means every record survived.
type DuplicateReport []Duplicate

// IDs returns the key of each dropped record, in input order. Dropped
// records share keys with retained ones, so the result may repeat.
func (r DuplicateReport) IDs() []string {
	ids := make([]string, len(r))
	for i, d := range r {
		ids[i] = d.ID
	}
	return ids
}
