package gpkg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/roach88/geodiff/internal/diff"
	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

// Change set partition layer names.
const (
	LayerNew          = "new"
	LayerDeleted      = "deleted"
	LayerModifiedGeom = "modified_geom"
	LayerModifiedAttr = "modified_attr"
	LayerModifiedBoth = "modified_both"
)

// WriteSnapshot persists a snapshot as a feature layer named after it.
// An existing layer of the same name is replaced; the drop, recreate
// and metadata registration happen in one transaction.
func (s *Store) WriteSnapshot(ctx context.Context, snap *feature.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.writeFeatureLayer(ctx, tx, snap.Layer, snap.KeyColumn, snap.Fields, snap.GeomType, snap.CRS, snap.Records); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.Layer, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// WriteChangeSet persists the changed partitions of a comparison, one
// layer each: NEW, DELETED and MODIFIED_GEOM as ordinary feature
// layers, MODIFIED_ATTR and MODIFIED_BOTH as before/after column pairs
// with the new geometry. Unchanged records are not written. Every
// partition layer is cleared first so a rewrite never leaves stale
// layers from a previous comparison.
func (s *Store) WriteChangeSet(ctx context.Context, cs *diff.ChangeSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write change set: %w", err)
	}
	defer tx.Rollback()

	partitions := []string{LayerNew, LayerDeleted, LayerModifiedGeom, LayerModifiedAttr, LayerModifiedBoth}
	for _, layer := range partitions {
		if err := dropLayer(ctx, tx, layer); err != nil {
			return fmt.Errorf("write change set: %w", err)
		}
	}

	features := []struct {
		layer   string
		records []feature.Record
	}{
		{LayerNew, cs.New},
		{LayerDeleted, cs.Deleted},
		{LayerModifiedGeom, cs.ModifiedGeom},
	}
	for _, p := range features {
		if len(p.records) == 0 {
			continue
		}
		if err := s.writeFeatureLayer(ctx, tx, p.layer, cs.KeyColumn, cs.Fields, cs.GeomType, cs.CRS, p.records); err != nil {
			return fmt.Errorf("write change set %s: %w", p.layer, err)
		}
	}

	changes := []struct {
		layer string
		mods  []diff.Modification
	}{
		{LayerModifiedAttr, cs.ModifiedAttr},
		{LayerModifiedBoth, cs.ModifiedBoth},
	}
	for _, p := range changes {
		if len(p.mods) == 0 {
			continue
		}
		if err := s.writeChangeLayer(ctx, tx, p.layer, cs, p.mods); err != nil {
			return fmt.Errorf("write change set %s: %w", p.layer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write change set: %w", err)
	}
	return nil
}

// WriteDuplicates persists a duplicate report as a geometry-less
// attribute layer. Nothing is written for an empty report, but an
// existing layer of the same name is still cleared.
func (s *Store) WriteDuplicates(ctx context.Context, layer, keyColumn string, fields []feature.Field, report feature.DuplicateReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write duplicates: %w", err)
	}
	defer tx.Rollback()

	if err := dropLayer(ctx, tx, layer); err != nil {
		return fmt.Errorf("write duplicates: %w", err)
	}

	if len(report) > 0 {
		if err := s.writeAttributeLayer(ctx, tx, layer, keyColumn, fields, report); err != nil {
			return fmt.Errorf("write duplicates %s: %w", layer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write duplicates: %w", err)
	}
	return nil
}

// dropLayer removes a layer's table and its metadata registrations.
func dropLayer(ctx context.Context, tx *sql.Tx, layer string) error {
	steps := []struct {
		query string
		args  []any
	}{
		{fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(layer)), nil},
		{"DELETE FROM gpkg_geometry_columns WHERE table_name = ?", []any{layer}},
		{"DELETE FROM gpkg_contents WHERE table_name = ?", []any{layer}},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("drop layer %s: %w", layer, err)
		}
	}
	return nil
}

func (s *Store) writeFeatureLayer(ctx context.Context, tx *sql.Tx, layer, keyColumn string, fields []feature.Field, geomType geo.Type, srsID int, records []feature.Record) error {
	if err := dropLayer(ctx, tx, layer); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, createFeatureTableSQL(layer, keyColumn, fields)); err != nil {
		return fmt.Errorf("create table %s: %w", layer, err)
	}

	geoms := make([]orb.Geometry, len(records))
	for i, rec := range records {
		geoms[i] = rec.Geom
	}
	if err := s.registerFeatureLayer(ctx, tx, layer, geomType, srsID, unionBound(geoms)); err != nil {
		return err
	}

	cols := make([]string, 0, len(fields)+2)
	cols = append(cols, quoteIdent(keyColumn))
	for _, f := range fields {
		cols = append(cols, quoteIdent(f.Name))
	}
	cols = append(cols, geomColumn)

	stmt, err := tx.PrepareContext(ctx, insertSQL(layer, cols))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", layer, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		blob, err := encodeGeometry(rec.Geom, srsID)
		if err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}

		args := make([]any, 0, len(cols))
		args = append(args, rec.ID)
		for _, f := range fields {
			args = append(args, bindValue(rec.Attr(f.Name)))
		}
		args = append(args, blob)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	return nil
}

func (s *Store) writeChangeLayer(ctx context.Context, tx *sql.Tx, layer string, cs *diff.ChangeSet, mods []diff.Modification) error {
	// Only fields that changed in at least one record get a column
	// pair, in shared-field order.
	changed := make(map[string]bool)
	for _, m := range mods {
		for _, c := range m.Changes {
			changed[c.Field] = true
		}
	}
	fields := make([]feature.Field, 0, len(changed))
	for _, f := range cs.Fields {
		if changed[f.Name] {
			fields = append(fields, f)
		}
	}

	if _, err := tx.ExecContext(ctx, createChangeTableSQL(layer, cs.KeyColumn, fields, cs.SuffixA, cs.SuffixB)); err != nil {
		return fmt.Errorf("create table %s: %w", layer, err)
	}

	geoms := make([]orb.Geometry, len(mods))
	for i, m := range mods {
		geoms[i] = m.Geom
	}
	if err := s.registerLayer(ctx, tx, layer, "features", cs.CRS, unionBound(geoms)); err != nil {
		return err
	}
	if err := registerGeometryColumn(ctx, tx, layer, cs.GeomType, cs.CRS); err != nil {
		return err
	}

	cols := make([]string, 0, 2*len(fields)+2)
	cols = append(cols, quoteIdent(cs.KeyColumn))
	for _, f := range fields {
		cols = append(cols, quoteIdent(f.Name+"_"+cs.SuffixA), quoteIdent(f.Name+"_"+cs.SuffixB))
	}
	cols = append(cols, geomColumn)

	stmt, err := tx.PrepareContext(ctx, insertSQL(layer, cols))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", layer, err)
	}
	defer stmt.Close()

	for _, m := range mods {
		byField := make(map[string]diff.FieldChange, len(m.Changes))
		for _, c := range m.Changes {
			byField[c.Field] = c
		}

		blob, err := encodeGeometry(m.Geom, cs.CRS)
		if err != nil {
			return fmt.Errorf("record %s: %w", m.ID, err)
		}

		args := make([]any, 0, len(cols))
		args = append(args, m.ID)
		for _, f := range fields {
			if c, ok := byField[f.Name]; ok {
				args = append(args, bindValue(c.Before), bindValue(c.After))
			} else {
				args = append(args, nil, nil)
			}
		}
		args = append(args, blob)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", m.ID, err)
		}
	}

	return nil
}

func (s *Store) writeAttributeLayer(ctx context.Context, tx *sql.Tx, layer, keyColumn string, fields []feature.Field, report feature.DuplicateReport) error {
	if _, err := tx.ExecContext(ctx, createAttributeTableSQL(layer, keyColumn, fields)); err != nil {
		return fmt.Errorf("create table %s: %w", layer, err)
	}

	if err := s.registerLayer(ctx, tx, layer, "attributes", nil, nil); err != nil {
		return err
	}

	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, quoteIdent(keyColumn))
	for _, f := range fields {
		cols = append(cols, quoteIdent(f.Name))
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(layer, cols))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", layer, err)
	}
	defer stmt.Close()

	for _, dup := range report {
		args := make([]any, 0, len(cols))
		args = append(args, dup.ID)
		for _, f := range fields {
			var v feature.Value = feature.Null{}
			if attr, ok := dup.Attrs[f.Name]; ok && attr != nil {
				v = attr
			}
			args = append(args, bindValue(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", dup.ID, err)
		}
	}

	return nil
}

// registerFeatureLayer records a feature layer in gpkg_contents and
// gpkg_geometry_columns.
func (s *Store) registerFeatureLayer(ctx context.Context, tx *sql.Tx, layer string, geomType geo.Type, srsID int, bbox *orb.Bound) error {
	if err := s.registerLayer(ctx, tx, layer, "features", srsID, bbox); err != nil {
		return err
	}
	return registerGeometryColumn(ctx, tx, layer, geomType, srsID)
}

func (s *Store) registerLayer(ctx context.Context, tx *sql.Tx, layer, dataType string, srsID any, bbox *orb.Bound) error {
	var minX, minY, maxX, maxY any
	if bbox != nil {
		minX, minY = bbox.Min[0], bbox.Min[1]
		maxX, maxY = bbox.Max[0], bbox.Max[1]
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_contents
		(table_name, data_type, identifier, last_change, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, layer, dataType, layer, s.now().UTC().Format(timeFormat), minX, minY, maxX, maxY, srsID)
	if err != nil {
		return fmt.Errorf("register layer %s: %w", layer, err)
	}
	return nil
}

func registerGeometryColumn(ctx context.Context, tx *sql.Tx, layer string, geomType geo.Type, srsID int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_geometry_columns
		(table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, ?, ?, ?, 0, 0)
	`, layer, geomColumn, geomType.Name(), srsID)
	if err != nil {
		return fmt.Errorf("register geometry column for %s: %w", layer, err)
	}
	return nil
}

func insertSQL(layer string, quotedCols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(quotedCols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(layer), strings.Join(quotedCols, ", "), placeholders)
}

// bindValue converts an attribute value to its SQL binding; Null binds
// as SQL NULL.
func bindValue(v feature.Value) any {
	switch t := v.(type) {
	case feature.String:
		return string(t)
	case feature.Number:
		return float64(t)
	case feature.Bool:
		return bool(t)
	default:
		return nil
	}
}

// unionBound aggregates the bounding box over a set of geometries, nil
// when the set is empty.
func unionBound(geoms []orb.Geometry) *orb.Bound {
	if len(geoms) == 0 {
		return nil
	}
	bound := geoms[0].Bound()
	for _, g := range geoms[1:] {
		bound = bound.Union(g.Bound())
	}
	return &bound
}
