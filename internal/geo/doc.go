// Package geo provides the geometry primitives shared by normalization,
// key generation, and diffing: family classification, multipart promotion,
// canonical vertex ordering, grid snapping, tolerance comparison, and the
// byte encoding used for content-addressed record keys.
//
// All functions treat their inputs as immutable: anything that would
// modify a geometry operates on a clone and returns it. This package
// imports nothing internal; every other geometry-touching package builds
// on it.
//
// Normal form is what makes hashing stable. Two geometries that describe
// the same shape but differ in vertex order, ring rotation, winding, or
// multipart member order rewrite to identical coordinate sequences, and
// therefore to identical WKB bytes.
package geo
