package gpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

// HasLayer reports whether the GeoPackage registers a layer by name.
func (s *Store) HasLayer(ctx context.Context, layer string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM gpkg_contents WHERE table_name = ?", layer).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has layer %s: %w", layer, err)
	}
	return count > 0, nil
}

// Layers returns the registered layer names in lexical order.
func (s *Store) Layers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT table_name FROM gpkg_contents ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	defer rows.Close()

	var layers []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list layers: %w", err)
		}
		layers = append(layers, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	return layers, nil
}

// ReadSnapshot reads a feature layer written by WriteSnapshot back into
// a snapshot. keyColumn names the record identifier column; the other
// columns become attribute fields typed from their declarations.
func (s *Store) ReadSnapshot(ctx context.Context, layer, keyColumn string) (*feature.Snapshot, error) {
	geomCol, typeName, srsID, err := s.geometryInfo(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
	}

	geomType, err := geo.ParseType(typeName)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
	}

	cols, err := s.tableColumns(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
	}

	hasKey := false
	var fields []feature.Field
	for _, col := range cols {
		switch {
		case col.pk, col.name == geomCol:
		case col.name == keyColumn:
			hasKey = true
		default:
			fields = append(fields, feature.Field{Name: col.name, Type: fieldTypeOf(col.declared)})
		}
	}
	if !hasKey {
		return nil, fmt.Errorf("read snapshot %s: %w", layer,
			&feature.MissingFieldError{Layer: layer, Field: keyColumn})
	}

	selectCols := make([]string, 0, len(fields)+2)
	selectCols = append(selectCols, quoteIdent(keyColumn))
	for _, f := range fields {
		selectCols = append(selectCols, quoteIdent(f.Name))
	}
	selectCols = append(selectCols, quoteIdent(geomCol))

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY rowid",
		strings.Join(selectCols, ", "), quoteIdent(layer)))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
	}
	defer rows.Close()

	var records []feature.Record
	for rows.Next() {
		var id string
		var blob []byte
		holders := scanHolders(fields)

		dest := make([]any, 0, len(holders)+2)
		dest = append(dest, &id)
		dest = append(dest, holders...)
		dest = append(dest, &blob)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
		}

		g, _, err := decodeGeometry(blob)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: record %s: %w", layer, id, err)
		}

		attrs := make(map[string]feature.Value, len(fields))
		for i, f := range fields {
			attrs[f.Name] = scannedValue(holders[i])
		}
		records = append(records, feature.Record{ID: id, Attrs: attrs, Geom: g})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", layer, err)
	}

	return &feature.Snapshot{
		Layer:     layer,
		CRS:       srsID,
		Fields:    fields,
		GeomType:  geomType,
		KeyColumn: keyColumn,
		Records:   records,
	}, nil
}

// ReadTable reads a feature layer as an unnormalized table, the same
// shape a fetcher returns. Every non-geometry data column comes back as
// a field, including any key column; surrogate integer primary keys are
// dropped. Rows with a NULL geometry keep a nil geometry so
// normalization reports them like any other unsupported input.
func (s *Store) ReadTable(ctx context.Context, layer string) (*feature.Table, error) {
	geomCol, _, srsID, err := s.geometryInfo(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", layer, err)
	}

	cols, err := s.tableColumns(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", layer, err)
	}

	var fields []feature.Field
	for _, col := range cols {
		if col.pk || col.name == geomCol {
			continue
		}
		fields = append(fields, feature.Field{Name: col.name, Type: fieldTypeOf(col.declared)})
	}

	selectCols := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		selectCols = append(selectCols, quoteIdent(f.Name))
	}
	selectCols = append(selectCols, quoteIdent(geomCol))

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY rowid",
		strings.Join(selectCols, ", "), quoteIdent(layer)))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", layer, err)
	}
	defer rows.Close()

	var out []feature.Row
	for rows.Next() {
		var blob []byte
		holders := scanHolders(fields)

		dest := make([]any, 0, len(holders)+1)
		dest = append(dest, holders...)
		dest = append(dest, &blob)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read table %s: %w", layer, err)
		}

		row := feature.Row{Attrs: make(map[string]feature.Value, len(fields))}
		for i, f := range fields {
			row.Attrs[f.Name] = scannedValue(holders[i])
		}
		if len(blob) > 0 {
			g, _, err := decodeGeometry(blob)
			if err != nil {
				return nil, fmt.Errorf("read table %s: %w", layer, err)
			}
			row.Geom = g
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table %s: %w", layer, err)
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	return &feature.Table{Layer: layer, CRS: srsID, Fields: names, Rows: out}, nil
}

// geometryInfo returns the geometry column registration for a layer.
func (s *Store) geometryInfo(ctx context.Context, layer string) (column, typeName string, srsID int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT column_name, geometry_type_name, srs_id
		FROM gpkg_geometry_columns
		WHERE table_name = ?
	`, layer).Scan(&column, &typeName, &srsID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", 0, &LayerNotFoundError{Layer: layer}
	}
	if err != nil {
		return "", "", 0, fmt.Errorf("geometry info: %w", err)
	}
	return column, typeName, srsID, nil
}

type columnInfo struct {
	name     string
	declared string
	pk       bool
}

// tableColumns lists a table's columns in declaration order via
// PRAGMA table_info.
func (s *Store) tableColumns(ctx context.Context, layer string) ([]columnInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(layer)))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("table info: %w", err)
		}
		cols = append(cols, columnInfo{name: name, declared: decl.String, pk: pk > 0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, &LayerNotFoundError{Layer: layer}
	}
	return cols, nil
}

// scanHolders builds one scan destination per field, typed from the
// field's declared type.
func scanHolders(fields []feature.Field) []any {
	holders := make([]any, len(fields))
	for i, f := range fields {
		switch f.Type {
		case feature.TypeNumber:
			holders[i] = new(sql.NullFloat64)
		case feature.TypeBool:
			holders[i] = new(sql.NullBool)
		default:
			holders[i] = new(sql.NullString)
		}
	}
	return holders
}

// scannedValue converts a scan destination back to an attribute value;
// SQL NULL becomes Null.
func scannedValue(holder any) feature.Value {
	switch v := holder.(type) {
	case *sql.NullFloat64:
		if v.Valid {
			return feature.Number(v.Float64)
		}
	case *sql.NullBool:
		if v.Valid {
			return feature.Bool(v.Bool)
		}
	case *sql.NullString:
		if v.Valid {
			return feature.String(v.String)
		}
	}
	return feature.Null{}
}
