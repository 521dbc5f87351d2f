// Package feature defines the data model shared across the change
// detection pipeline: typed attribute values, canonical field names,
// raw input tables, keyed snapshots, and the error taxonomy every stage
// reports through.
//
// The model draws a hard line between a Table and a Snapshot. A Table is
// whatever a source handed us: field names unsanitized, CRS possibly
// missing, geometries in arbitrary form. A Snapshot only exists on the
// other side of normalization and keying, and its invariants (canonical
// field names, uniform geometry type, one CRS, unique record identifiers)
// are what the diff engine relies on instead of re-validating.
//
// Values are a closed set: String, Number, Bool, and Null. Null is typed
// absence; it equals only itself and never the empty string or the
// literal "NULL". The canonical string rendering used for key hashing
// maps Null to the sentinel "NULL", which exists only inside hash input
// construction.
package feature
