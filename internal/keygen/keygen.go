// Package keygen assigns stable record identifiers to snapshots.
//
// Identifiers are content-addressed: a record's key is a function of what
// the record is, not where it sits in the file. Two runs over unchanged
// source data therefore produce identical keys, which is what lets the
// diff engine match records across runs without any server-side state.
//
// Keys come in two flavors. Explicit keys hash caller-designated fields
// that are contractually unique; a duplicate there is a configuration
// error and fatal. Synthetic keys hash the canonical geometry encoding
// plus any configured extra fields; duplicates there mean genuinely
// identical features, so the first is kept and the rest are dropped into
// a report instead of failing the run.
package keygen

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

// DefaultKeyColumn is the column name generated keys persist under when
// the caller does not configure one.
const DefaultKeyColumn = "gd_load_id"

// Hash inputs are domain-separated so an explicit key can never collide
// with a synthetic key built from the same bytes. Bump the version
// suffix if the input construction ever changes; old and new keys must
// not mix silently.
const (
	domainExplicit  = "geodiff/key/explicit/v1"
	domainSynthetic = "geodiff/key/synthetic/v1"
)

// Options controls key assignment for one snapshot.
type Options struct {
	// KeyFields names the fields of an explicit unique key. When set,
	// HashFields and Precision are ignored.
	KeyFields []string

	// HashFields names extra fields mixed into synthetic geometry keys,
	// for datasets where distinct records can share identical geometry.
	HashFields []string

	// Precision is the grid size, in CRS units, that coordinates are
	// snapped to before hashing. Zero disables snapping.
	Precision float64

	// KeyColumn is the column the assigned keys persist under. Empty
	// means DefaultKeyColumn.
	KeyColumn string
}

// Assign returns a copy of the snapshot with a key assigned to every
// record, plus a report of records dropped as synthetic-key duplicates.
// The input snapshot is not modified.
//
// Keys are full hex SHA-1 digests. Record order is preserved; when
// synthetic keys collide, the first record with a given key is kept and
// later ones are reported in input order.
func Assign(snap *feature.Snapshot, opts Options) (*feature.Snapshot, feature.DuplicateReport, error) {
	keyColumn := opts.KeyColumn
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	canonicalKey := feature.CanonicalName(keyColumn)
	for _, f := range snap.Fields {
		if f.Name == canonicalKey {
			return nil, nil, &feature.KeyCollisionError{Layer: snap.Layer, Column: keyColumn}
		}
	}

	var (
		records []feature.Record
		report  feature.DuplicateReport
		err     error
	)
	if len(opts.KeyFields) > 0 {
		records, err = explicitKeys(snap, opts.KeyFields)
	} else {
		records, report, err = syntheticKeys(snap, opts.HashFields, opts.Precision)
	}
	if err != nil {
		return nil, nil, err
	}

	keyed := &feature.Snapshot{
		Layer:     snap.Layer,
		CRS:       snap.CRS,
		Fields:    snap.Fields,
		GeomType:  snap.GeomType,
		KeyColumn: canonicalKey,
		Records:   records,
	}
	return keyed, report, nil
}

// explicitKeys hashes the caller-designated unique fields. Uniqueness is
// checked on the joined canonical values before hashing so the error can
// quote the offending value rather than an opaque digest.
func explicitKeys(snap *feature.Snapshot, keyFields []string) ([]feature.Record, error) {
	names, err := resolveNames(snap, keyFields)
	if err != nil {
		return nil, err
	}

	joined := make([]string, len(snap.Records))
	counts := make(map[string]int, len(snap.Records))
	for i, rec := range snap.Records {
		joined[i] = joinValues(rec, names)
		counts[joined[i]]++
	}
	for _, j := range joined {
		if counts[j] > 1 {
			return nil, &feature.DuplicateKeyError{
				Layer:  snap.Layer,
				Fields: names,
				Value:  j,
				Count:  counts[j],
			}
		}
	}

	out := make([]feature.Record, len(snap.Records))
	for i, rec := range snap.Records {
		out[i] = feature.Record{ID: explicitDigest(joined[i]), Attrs: rec.Attrs, Geom: rec.Geom}
	}
	return out, nil
}

// syntheticKeys hashes the canonical geometry encoding plus any extra
// hash fields. Records whose key repeats an earlier one are dropped and
// reported; identical content means identical records.
func syntheticKeys(snap *feature.Snapshot, hashFields []string, precision float64) ([]feature.Record, feature.DuplicateReport, error) {
	names, err := resolveNames(snap, hashFields)
	if err != nil {
		return nil, nil, err
	}

	out := make([]feature.Record, 0, len(snap.Records))
	var report feature.DuplicateReport
	seen := make(map[string]bool, len(snap.Records))
	for _, rec := range snap.Records {
		id := syntheticDigest(geo.HashBytes(rec.Geom, precision), rec, names)
		if seen[id] {
			report = append(report, feature.Duplicate{ID: id, Attrs: rec.Attrs})
			continue
		}
		seen[id] = true
		out = append(out, feature.Record{ID: id, Attrs: rec.Attrs, Geom: rec.Geom})
	}
	return out, report, nil
}

// resolveNames canonicalizes configured field names and verifies each
// one exists in the snapshot.
func resolveNames(snap *feature.Snapshot, fields []string) ([]string, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		name := feature.CanonicalName(f)
		if _, ok := snap.Field(name); !ok {
			return nil, &feature.MissingFieldError{Layer: snap.Layer, Field: f}
		}
		names[i] = name
	}
	return names, nil
}

// joinValues renders the named fields of a record as one hash input
// string: canonical value strings joined by "|", nulls as the sentinel.
func joinValues(rec feature.Record, names []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = feature.CanonicalString(rec.Attr(name))
	}
	return strings.Join(parts, "|")
}

func explicitDigest(joined string) string {
	h := sha1.New()
	h.Write([]byte(domainExplicit))
	h.Write([]byte{0})
	h.Write([]byte(joined))
	return hex.EncodeToString(h.Sum(nil))
}

func syntheticDigest(geomBytes []byte, rec feature.Record, names []string) string {
	h := sha1.New()
	h.Write([]byte(domainSynthetic))
	h.Write([]byte{0})
	h.Write(geomBytes)
	for _, name := range names {
		h.Write([]byte{'|'})
		h.Write([]byte(feature.CanonicalString(rec.Attr(name))))
	}
	return hex.EncodeToString(h.Sum(nil))
}
