// Package gpkg reads and writes snapshots as GeoPackage files.
//
// A GeoPackage is a single SQLite database laid out per the OGC
// GeoPackage encoding standard (version 1.3): the core metadata tables
// gpkg_spatial_ref_sys, gpkg_contents and gpkg_geometry_columns, plus
// one user table per layer. Geometries are stored as standard
// GeoPackage binary blobs (GP header, envelope, WKB body).
//
// The store persists three kinds of layers:
//   - feature layers: one row per record, key column plus typed
//     attribute columns plus a geom blob (WriteSnapshot, and the NEW /
//     DELETED / MODIFIED_GEOM partitions of a change set)
//   - change layers: modified records rendered as suffixed
//     before/after column pairs with the new geometry (the
//     MODIFIED_ATTR / MODIFIED_BOTH partitions)
//   - attribute layers: rows with no geometry (duplicate reports)
//
// Layer writes are transactional: the layer's table is dropped,
// recreated and re-registered in the metadata tables as one unit, so a
// reader never observes a half-written layer.
//
// The journal mode is DELETE rather than WAL: a GeoPackage is a
// portable artifact and must stay a single file on disk, with no -wal
// or -shm sidecars.
package gpkg
