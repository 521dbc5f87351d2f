package gpkg

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/geodiff/internal/proj"
)

//go:embed schema.sql
var schemaSQL string

const (
	// "GPKG" in ASCII; stamped into the SQLite header so other tools
	// recognize the file as a GeoPackage.
	applicationID = 0x47504B47

	// GeoPackage 1.3.0, encoded per the standard as MMmmPP.
	userVersion = 10300
)

// timeFormat renders gpkg_contents.last_change values: ISO 8601 UTC
// with millisecond precision, matching the table's strftime default.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Store is an open GeoPackage.
type Store struct {
	db   *sql.DB
	path string

	// now stamps gpkg_contents.last_change; tests pin it.
	now func() time.Time
}

// Create makes a new GeoPackage at path: core metadata tables, the
// spatial reference systems the pipeline understands, and the two
// reserved SRS entries the standard requires. Fails if path already
// exists.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create geopackage: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("create geopackage: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("create geopackage: %w", err)
	}

	if err := initialize(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("create geopackage: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Open opens an existing GeoPackage. The file must exist and carry the
// GeoPackage application id; anything else is rejected rather than
// silently treated as an empty database.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}

	var appID int64
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		db.Close()
		return nil, fmt.Errorf("open geopackage: %w", err)
	}
	if appID != applicationID {
		db.Close()
		return nil, &NotAGeoPackageError{Path: path}
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file path the store was opened at.
func (s *Store) Path() string {
	return s.path
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY during layer rewrites.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// initialize stamps the GeoPackage pragmas, creates the core metadata
// tables and seeds the spatial reference systems. Idempotent.
func initialize(db *sql.DB) error {
	stamps := []string{
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
		fmt.Sprintf("PRAGMA user_version = %d", userVersion),
	}
	for _, pragma := range stamps {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	return seedSpatialRefSys(db)
}

// seedSpatialRefSys inserts the two reserved SRS rows the standard
// requires (undefined cartesian and undefined geographic) plus every
// registered EPSG system with its WKT definition.
func seedSpatialRefSys(db *sql.DB) error {
	const insert = `
		INSERT OR IGNORE INTO gpkg_spatial_ref_sys
		(srs_name, srs_id, organization, organization_coordsys_id, definition)
		VALUES (?, ?, ?, ?, ?)
	`

	rows := [][]any{
		{"Undefined Cartesian SRS", -1, "NONE", -1, "undefined"},
		{"Undefined geographic SRS", 0, "NONE", 0, "undefined"},
	}
	for _, code := range proj.Codes() {
		crs, err := proj.Lookup(code)
		if err != nil {
			return err
		}
		rows = append(rows, []any{crs.Name, crs.Code, "EPSG", crs.Code, crs.WKT})
	}

	for _, r := range rows {
		if _, err := db.Exec(insert, r...); err != nil {
			return fmt.Errorf("seed spatial_ref_sys: %w", err)
		}
	}

	return nil
}
