package gpkg

import (
	"fmt"
	"strings"

	"github.com/roach88/geodiff/internal/feature"
)

// geomColumn is the geometry column name in every feature table.
const geomColumn = "geom"

// quoteIdent quotes an SQL identifier, doubling any embedded quotes.
// Layer and column names come from user configuration and remote
// schemas, so nothing is interpolated bare.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnType maps an inferred field type onto the column type it
// persists as. Unknown and mixed columns fall back to TEXT.
func columnType(t feature.FieldType) string {
	switch t {
	case feature.TypeNumber:
		return "REAL"
	case feature.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// fieldTypeOf resolves a declared column type back to a field type for
// reading a layer's schema. SQLite declarations are free-form, so
// matching is by the usual numeric affinity names.
func fieldTypeOf(declared string) feature.FieldType {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT", "NUMERIC",
		"INTEGER", "INT", "BIGINT", "MEDIUMINT", "SMALLINT", "TINYINT":
		return feature.TypeNumber
	case "BOOLEAN":
		return feature.TypeBool
	case "":
		return feature.TypeUnknown
	default:
		return feature.TypeString
	}
}

// createFeatureTableSQL builds the DDL for a feature layer: an fid
// surrogate primary key, the unique key column, one typed column per
// field and the geometry blob.
func createFeatureTableSQL(layer, keyColumn string, fields []feature.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(layer))
	b.WriteString("\tfid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	fmt.Fprintf(&b, "\t%s TEXT NOT NULL UNIQUE,\n", quoteIdent(keyColumn))
	for _, f := range fields {
		fmt.Fprintf(&b, "\t%s %s,\n", quoteIdent(f.Name), columnType(f.Type))
	}
	fmt.Fprintf(&b, "\t%s BLOB\n)", geomColumn)
	return b.String()
}

// createChangeTableSQL builds the DDL for a modification layer: the key
// column followed by a before/after column pair per changed field, then
// the new version's geometry.
func createChangeTableSQL(layer, keyColumn string, fields []feature.Field, suffixA, suffixB string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(layer))
	b.WriteString("\tfid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	fmt.Fprintf(&b, "\t%s TEXT NOT NULL UNIQUE,\n", quoteIdent(keyColumn))
	for _, f := range fields {
		typ := columnType(f.Type)
		fmt.Fprintf(&b, "\t%s %s,\n", quoteIdent(f.Name+"_"+suffixA), typ)
		fmt.Fprintf(&b, "\t%s %s,\n", quoteIdent(f.Name+"_"+suffixB), typ)
	}
	fmt.Fprintf(&b, "\t%s BLOB\n)", geomColumn)
	return b.String()
}

// createAttributeTableSQL builds the DDL for a geometry-less layer. The
// key column is not unique: duplicate reports repeat keys by nature.
func createAttributeTableSQL(layer, keyColumn string, fields []feature.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(layer))
	b.WriteString("\tfid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	fmt.Fprintf(&b, "\t%s TEXT NOT NULL", quoteIdent(keyColumn))
	for _, f := range fields {
		fmt.Fprintf(&b, ",\n\t%s %s", quoteIdent(f.Name), columnType(f.Type))
	}
	b.WriteString("\n)")
	return b.String()
}
