package diff

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

// FieldChange is one attribute that differs between the two versions of
// a record.
type FieldChange struct {
	Field  string
	Before feature.Value
	After  feature.Value
}

// Modification is a record present in both snapshots whose attributes
// changed. Changes lists the differing fields in compared-field order;
// Geom is the new version's geometry.
type Modification struct {
	ID      string
	Changes []FieldChange
	Geom    orb.Geometry
}

// ChangeSet is the full outcome of comparing two snapshots. The six
// partitions are disjoint and together cover every record of both
// inputs exactly once; within each partition records are ordered by
// identifier. The comparison context (shared fields, key column, CRS,
// geometry type, suffixes) rides along so the set can be persisted
// without the inputs.
type ChangeSet struct {
	LayerA string
	LayerB string

	// Fields are the shared attribute fields the comparison covered,
	// in the old snapshot's field order.
	Fields []feature.Field

	KeyColumn string
	CRS       int
	GeomType  geo.Type

	// SuffixA and SuffixB label before and after values when field
	// changes are rendered into columns.
	SuffixA string
	SuffixB string

	New          []feature.Record // only in B
	Deleted      []feature.Record // only in A
	ModifiedAttr []Modification   // attributes differ, geometry within tolerance
	ModifiedGeom []feature.Record // geometry differs, attributes equal (B's version)
	ModifiedBoth []Modification   // both differ
	Unchanged    []feature.Record // equal on both axes (B's version)
}

// HasChanges reports whether the comparison found anything other than
// unchanged records.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Deleted) > 0 ||
		len(cs.ModifiedAttr) > 0 || len(cs.ModifiedGeom) > 0 || len(cs.ModifiedBoth) > 0
}

// Summary holds the counters reported for one comparison. Field names
// follow the change report schema consumed by downstream tooling.
type Summary struct {
	RecordCountOriginal       int     `json:"record_count_original"`
	RecordCountNew            int     `json:"record_count_new"`
	RecordCountDifference     int     `json:"record_count_difference"`
	RecordCountDifferencePct  float64 `json:"record_count_difference_pct"`
	Unchanged                 int     `json:"n_unchanged"`
	Deletions                 int     `json:"n_deletions"`
	Additions                 int     `json:"n_additions"`
	Modified                  int     `json:"n_modified"`
	ModifiedSpatialOnly       int     `json:"n_modified_spatial_only"`
	ModifiedSpatialAttributes int     `json:"n_modified_spatial_attributes"`
	ModifiedAttributesOnly    int     `json:"n_modified_attributes_only"`
}

// Summarize derives the report counters from the partitions.
func (cs *ChangeSet) Summarize() Summary {
	original := len(cs.Deleted) + len(cs.ModifiedAttr) + len(cs.ModifiedGeom) + len(cs.ModifiedBoth) + len(cs.Unchanged)
	current := len(cs.New) + len(cs.ModifiedAttr) + len(cs.ModifiedGeom) + len(cs.ModifiedBoth) + len(cs.Unchanged)

	s := Summary{
		RecordCountOriginal:       original,
		RecordCountNew:            current,
		RecordCountDifference:     current - original,
		Unchanged:                 len(cs.Unchanged),
		Deletions:                 len(cs.Deleted),
		Additions:                 len(cs.New),
		Modified:                  len(cs.ModifiedAttr) + len(cs.ModifiedGeom) + len(cs.ModifiedBoth),
		ModifiedSpatialOnly:       len(cs.ModifiedGeom),
		ModifiedSpatialAttributes: len(cs.ModifiedBoth),
		ModifiedAttributesOnly:    len(cs.ModifiedAttr),
	}
	if original > 0 {
		pct := float64(current-original) / float64(original) * 100
		s.RecordCountDifferencePct = math.Round(pct*100) / 100
	}
	return s
}
