package feature

import (
	"fmt"
	"strings"
)

// The pipeline fails fast: the first invariant violation in any stage
// aborts the run for that layer with one of the typed errors below. Each
// error names the layer and the offending field, type, or value so the
// operator can fix the source or the configuration without re-running
// under a debugger.

// MissingCRSError reports input data with no declared coordinate
// reference system. Guessing a CRS risks silently diffing datasets in
// different systems, so the pipeline refuses instead.
type MissingCRSError struct {
	Layer string
}

func (e *MissingCRSError) Error() string {
	return fmt.Sprintf("layer %s: source data declares no coordinate reference system", e.Layer)
}

// SchemaError reports two retained source columns whose names collapse
// to the same canonical form.
type SchemaError struct {
	Layer     string
	FieldA    string
	FieldB    string
	Canonical string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("layer %s: field names %q and %q both canonicalize to %q, rename one in the source or drop it from fields",
		e.Layer, e.FieldA, e.FieldB, e.Canonical)
}

// MissingFieldError reports a configured field that the source data does
// not carry, after case-insensitive matching.
type MissingFieldError struct {
	Layer string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("layer %s: field %q is not present in the source data", e.Layer, e.Field)
}

// EmptyDatasetError reports a source that returned zero records. An
// empty result is indistinguishable from a broken query or endpoint, so
// it is never treated as "everything was deleted".
type EmptyDatasetError struct {
	Layer string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("layer %s: source returned no records, check the source location and query", e.Layer)
}

// UnsupportedGeometryError reports geometries outside the supported
// point, line, and polygon families, or a dataset mixing unrelated
// families. Mixed-family layers are never split automatically; the
// source must be pre-split so each layer carries one family.
type UnsupportedGeometryError struct {
	Layer string
	Types []string
	Mixed bool
}

func (e *UnsupportedGeometryError) Error() string {
	if e.Mixed {
		return fmt.Sprintf("layer %s: geometry types %s belong to different families, split the layer by family before processing",
			e.Layer, strings.Join(e.Types, " and "))
	}
	return fmt.Sprintf("layer %s: geometries of type %s are not supported", e.Layer, strings.Join(e.Types, ", "))
}

// DuplicateKeyError reports explicit key fields that do not uniquely
// identify records. Explicit keys are a caller contract, so duplicates
// are fatal rather than silently dropped.
type DuplicateKeyError struct {
	Layer  string
	Fields []string
	Value  string
	Count  int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("layer %s: key fields %s do not uniquely identify records (%q occurs %d times)",
		e.Layer, strings.Join(e.Fields, ","), e.Value, e.Count)
}

// KeyCollisionError reports a key column name that already exists in the
// data. Overwriting a source column with generated keys would silently
// destroy data, so the caller must configure a different column name.
type KeyCollisionError struct {
	Layer  string
	Column string
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("layer %s: key column %q already exists in the source fields, configure a different key column",
		e.Layer, e.Column)
}

// NoCommonFieldsError reports two snapshots with disjoint attribute
// field sets. With nothing to compare, a diff would classify every
// record as modified or pristine arbitrarily.
type NoCommonFieldsError struct {
	LayerA string
	LayerB string
}

func (e *NoCommonFieldsError) Error() string {
	return fmt.Sprintf("layers %s and %s share no attribute fields", e.LayerA, e.LayerB)
}

// FieldTypeMismatchError reports a shared field whose inferred types
// disagree between the two snapshots being compared.
type FieldTypeMismatchError struct {
	LayerA string
	LayerB string
	Field  string
	TypeA  FieldType
	TypeB  FieldType
}

func (e *FieldTypeMismatchError) Error() string {
	return fmt.Sprintf("field %q is %s in layer %s but %s in layer %s",
		e.Field, e.TypeA, e.LayerA, e.TypeB, e.LayerB)
}

// GeometryTypeMismatchError reports snapshots from different geometry
// families. Family mismatches mean the datasets describe different kinds
// of things; no tolerance makes a point comparable to a polygon.
type GeometryTypeMismatchError struct {
	LayerA string
	LayerB string
	TypeA  string
	TypeB  string
}

func (e *GeometryTypeMismatchError) Error() string {
	return fmt.Sprintf("geometry type %s of layer %s cannot be compared with %s of layer %s",
		e.TypeA, e.LayerA, e.TypeB, e.LayerB)
}

// CRSMismatchError reports snapshots in different coordinate reference
// systems. Comparison never reprojects implicitly; tolerances are only
// meaningful when both sides share units.
type CRSMismatchError struct {
	LayerA string
	LayerB string
	CRSA   int
	CRSB   int
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("layer %s is in EPSG:%d but layer %s is in EPSG:%d, reproject before comparing",
		e.LayerA, e.CRSA, e.LayerB, e.CRSB)
}
