package keygen

import (
	"regexp"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/geo"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{40}$`)

func pointSnap(recs ...feature.Record) *feature.Snapshot {
	return &feature.Snapshot{
		Layer: "parks",
		CRS:   3005,
		Fields: []feature.Field{
			{Name: "name", Type: feature.TypeString},
			{Name: "region", Type: feature.TypeString},
		},
		GeomType: geo.Type{Family: geo.FamilyPoint},
		Records:  recs,
	}
}

func park(name, region string, x, y float64) feature.Record {
	return feature.Record{
		Attrs: map[string]feature.Value{
			"name":   feature.String(name),
			"region": feature.String(region),
		},
		Geom: orb.Point{x, y},
	}
}

func TestAssign_Synthetic(t *testing.T) {
	snap := pointSnap(
		park("Garibaldi", "Squamish", 1200000.123, 500000.456),
		park("Strathcona", "Comox", 900000, 550000),
	)

	keyed, report, err := Assign(snap, Options{Precision: 0.01})
	require.NoError(t, err)
	require.Empty(t, report)
	require.Len(t, keyed.Records, 2)

	assert.Equal(t, "gd_load_id", keyed.KeyColumn)
	for _, rec := range keyed.Records {
		assert.Regexp(t, hexKey, rec.ID)
	}
	assert.NotEqual(t, keyed.Records[0].ID, keyed.Records[1].ID)

	// Same data, second run: identical keys.
	again, _, err := Assign(snap, Options{Precision: 0.01})
	require.NoError(t, err)
	assert.Equal(t, keyed.Records[0].ID, again.Records[0].ID)
	assert.Equal(t, keyed.Records[1].ID, again.Records[1].ID)

	// The input snapshot is untouched.
	assert.Empty(t, snap.Records[0].ID)
	assert.Empty(t, snap.KeyColumn)
}

func TestAssign_SyntheticSnapping(t *testing.T) {
	base := pointSnap(park("Garibaldi", "Squamish", 1200000.123, 500000.456))
	jittered := pointSnap(park("Garibaldi", "Squamish", 1200000.1226, 500000.4561))
	moved := pointSnap(park("Garibaldi", "Squamish", 1200000.2, 500000.456))

	keyOf := func(s *feature.Snapshot, precision float64) string {
		keyed, _, err := Assign(s, Options{Precision: precision})
		require.NoError(t, err)
		return keyed.Records[0].ID
	}

	assert.Equal(t, keyOf(base, 0.01), keyOf(jittered, 0.01), "sub-grid jitter is invisible")
	assert.NotEqual(t, keyOf(base, 0.01), keyOf(moved, 0.01), "a real move changes the key")
	assert.NotEqual(t, keyOf(base, 0.01), keyOf(base, 0.001), "precision is part of the key input")
}

// A single-part geometry and its one-member multipart form snap to the
// same canonical bytes, so they produce the same key.
func TestAssign_SyntheticPromotionInvariant(t *testing.T) {
	single := pointSnap(park("Garibaldi", "Squamish", 10, 20))
	multi := pointSnap(feature.Record{
		Attrs: map[string]feature.Value{
			"name":   feature.String("Garibaldi"),
			"region": feature.String("Squamish"),
		},
		Geom: orb.MultiPoint{{10, 20}},
	})
	multi.GeomType = geo.Type{Family: geo.FamilyPoint, Multi: true}

	a, _, err := Assign(single, Options{Precision: 0.01})
	require.NoError(t, err)
	b, _, err := Assign(multi, Options{Precision: 0.01})
	require.NoError(t, err)
	assert.Equal(t, a.Records[0].ID, b.Records[0].ID)
}

func TestAssign_SyntheticHashFields(t *testing.T) {
	snap := pointSnap(
		park("North Lot", "Squamish", 10, 20),
		park("South Lot", "Squamish", 10, 20),
	)

	// Geometry alone cannot tell the two lots apart.
	_, report, err := Assign(snap, Options{Precision: 0.01})
	require.NoError(t, err)
	assert.Len(t, report, 1)

	// Mixing the name into the hash separates them.
	keyed, report, err := Assign(snap, Options{Precision: 0.01, HashFields: []string{"name"}})
	require.NoError(t, err)
	assert.Empty(t, report)
	assert.NotEqual(t, keyed.Records[0].ID, keyed.Records[1].ID)
}

func TestAssign_SyntheticDuplicates(t *testing.T) {
	snap := pointSnap(
		park("Garibaldi", "Squamish", 10, 20),
		park("Garibaldi", "Squamish", 10, 20),
		park("Strathcona", "Comox", 30, 40),
		park("Garibaldi", "Squamish", 10.0004, 19.9996), // same cell at 0.01
	)

	keyed, report, err := Assign(snap, Options{Precision: 0.01, HashFields: []string{"name", "region"}})
	require.NoError(t, err)

	require.Len(t, keyed.Records, 2, "first occurrence of each key is kept")
	require.Len(t, report, 2, "every later occurrence is reported")
	assert.Equal(t, keyed.Records[0].ID, report.IDs()[0])
	assert.Equal(t, keyed.Records[0].ID, report.IDs()[1])
	assert.Equal(t, feature.Value(feature.String("Garibaldi")), report[0].Attrs["name"])

	// Order of survivors follows input order.
	assert.Equal(t, feature.String("Garibaldi"), keyed.Records[0].Attr("name"))
	assert.Equal(t, feature.String("Strathcona"), keyed.Records[1].Attr("name"))
}

// Null hash fields use the sentinel rendering, so a null still yields a
// well-formed, distinct key.
func TestAssign_SyntheticNullField(t *testing.T) {
	withNull := feature.Record{
		Attrs: map[string]feature.Value{"name": feature.Null{}, "region": feature.String("x")},
		Geom:  orb.Point{10, 20},
	}
	withName := park("Garibaldi", "x", 10, 20)

	keyed, report, err := Assign(pointSnap(withNull, withName), Options{Precision: 0.01, HashFields: []string{"name"}})
	require.NoError(t, err)
	assert.Empty(t, report)
	assert.NotEqual(t, keyed.Records[0].ID, keyed.Records[1].ID)
}

func TestAssign_Explicit(t *testing.T) {
	snap := pointSnap(
		park("Garibaldi", "Squamish", 10, 20),
		park("Strathcona", "Comox", 30, 40),
	)

	keyed, report, err := Assign(snap, Options{KeyFields: []string{"NAME"}})
	require.NoError(t, err)
	assert.Empty(t, report)
	assert.Regexp(t, hexKey, keyed.Records[0].ID)
	assert.NotEqual(t, keyed.Records[0].ID, keyed.Records[1].ID)

	// Keys depend only on the key fields, not on geometry.
	movedRec := park("Garibaldi", "Squamish", 999, 999)
	moved, _, err := Assign(pointSnap(movedRec), Options{KeyFields: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, keyed.Records[0].ID, moved.Records[0].ID)
}

func TestAssign_ExplicitDuplicateFatal(t *testing.T) {
	snap := pointSnap(
		park("Garibaldi", "Squamish", 10, 20),
		park("Garibaldi", "Squamish", 30, 40),
		park("Garibaldi", "Squamish", 50, 60),
	)

	_, _, err := Assign(snap, Options{KeyFields: []string{"name", "region"}})
	var dup *feature.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "parks", dup.Layer)
	assert.Equal(t, []string{"name", "region"}, dup.Fields)
	assert.Equal(t, "Garibaldi|Squamish", dup.Value)
	assert.Equal(t, 3, dup.Count)
}

// Explicit and synthetic keys are domain-separated: the same record
// never produces the same identifier under both schemes.
func TestAssign_DomainSeparation(t *testing.T) {
	snap := pointSnap(park("Garibaldi", "Squamish", 10, 20))

	explicit, _, err := Assign(snap, Options{KeyFields: []string{"name", "region"}})
	require.NoError(t, err)
	synthetic, _, err := Assign(snap, Options{Precision: 0.01, HashFields: []string{"name", "region"}})
	require.NoError(t, err)

	assert.NotEqual(t, explicit.Records[0].ID, synthetic.Records[0].ID)
}

func TestAssign_KeyColumn(t *testing.T) {
	t.Run("custom name is canonicalized", func(t *testing.T) {
		keyed, _, err := Assign(pointSnap(park("a", "b", 1, 2)), Options{Precision: 0.01, KeyColumn: "Load ID"})
		require.NoError(t, err)
		assert.Equal(t, "load_id", keyed.KeyColumn)
	})

	t.Run("collision with existing field", func(t *testing.T) {
		snap := pointSnap(park("a", "b", 1, 2))
		snap.Fields = append(snap.Fields, feature.Field{Name: "gd_load_id", Type: feature.TypeString})

		_, _, err := Assign(snap, Options{Precision: 0.01})
		var collision *feature.KeyCollisionError
		require.ErrorAs(t, err, &collision)
		assert.Equal(t, "gd_load_id", collision.Column)
	})
}

func TestAssign_MissingFields(t *testing.T) {
	snap := pointSnap(park("a", "b", 1, 2))

	_, _, err := Assign(snap, Options{KeyFields: []string{"objectid"}})
	var missing *feature.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "objectid", missing.Field)

	_, _, err = Assign(snap, Options{Precision: 0.01, HashFields: []string{"objectid"}})
	assert.ErrorAs(t, err, &missing)
}
