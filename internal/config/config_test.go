package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parksJSON = `[
  {
    "out_layer": "parks",
    "protocol": "esri",
    "source": "https://maps.example.com/arcgis/rest/services/parks/FeatureServer/0",
    "query": "STATUS='Active'",
    "fields": ["PARK_NAME", "REGION", "AREA_HA"],
    "primary_key": ["PARK_NAME"],
    "metadata_url": "https://catalogue.example.com/parks",
    "schedule": "W"
  },
  {
    "out_layer": "trails",
    "protocol": "wfs",
    "source": "WHSE_BASEMAPPING.TRAILS_SP",
    "fields": ["TRAIL_NAME", "SURFACE"],
    "hash_fields": ["TRAIL_NAME"]
  }
]`

func TestParse_JSON(t *testing.T) {
	sources, err := Parse([]byte(parksJSON), "parks.json")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	parks := sources[0]
	assert.Equal(t, "parks", parks.OutLayer)
	assert.Equal(t, ProtocolESRI, parks.Protocol)
	assert.Equal(t, "https://maps.example.com/arcgis/rest/services/parks/FeatureServer/0", parks.Location)
	assert.Equal(t, "STATUS='Active'", parks.Query)
	assert.Equal(t, []string{"PARK_NAME", "REGION", "AREA_HA"}, parks.Fields)
	assert.Equal(t, []string{"PARK_NAME"}, parks.PrimaryKey)
	assert.Equal(t, ScheduleWeekly, parks.Schedule)

	trails := sources[1]
	assert.Equal(t, ProtocolWFS, trails.Protocol)
	assert.Empty(t, trails.PrimaryKey)
	assert.Equal(t, []string{"TRAIL_NAME"}, trails.HashFields)
	assert.Equal(t, ScheduleMonthly, trails.Schedule, "schedule defaults to monthly")
}

func TestParse_YAML(t *testing.T) {
	doc := `
- out_layer: wells
  protocol: file
  source: $DATA_DIR/wells.geojson
  fields:
    - WELL_TAG
    - DEPTH_M
  primary_key:
    - WELL_TAG
  schedule: Q
`
	sources, err := Parse([]byte(doc), "wells.yaml")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, ProtocolFile, sources[0].Protocol)
	assert.Equal(t, "$DATA_DIR/wells.geojson", sources[0].Location)
	assert.Equal(t, ScheduleQuarterly, sources[0].Schedule)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown protocol",
			doc:  `[{"out_layer":"a","protocol":"ftp","source":"x","fields":["F"]}]`,
		},
		{
			name: "uppercase layer name",
			doc:  `[{"out_layer":"Parks","protocol":"file","source":"x","fields":["F"]}]`,
		},
		{
			name: "missing source",
			doc:  `[{"out_layer":"a","protocol":"file","fields":["F"]}]`,
		},
		{
			name: "empty source",
			doc:  `[{"out_layer":"a","protocol":"file","source":"","fields":["F"]}]`,
		},
		{
			name: "bad schedule",
			doc:  `[{"out_layer":"a","protocol":"file","source":"x","fields":["F"],"schedule":"yearly"}]`,
		},
		{
			name: "fields not a list",
			doc:  `[{"out_layer":"a","protocol":"file","source":"x","fields":"F"}]`,
		},
		{
			name: "not a list",
			doc:  `{"out_layer":"a"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.json")
			var fileErr *FileError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, "bad.json", fileErr.File)
		})
	}
}

func TestParse_RelationalChecks(t *testing.T) {
	t.Run("primary key outside fields", func(t *testing.T) {
		doc := `[{"out_layer":"a","protocol":"file","source":"x","fields":["F"],"primary_key":["G"]}]`
		_, err := Parse([]byte(doc), "a.json")
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "primary_key", v.Field)
	})

	t.Run("hash fields outside fields", func(t *testing.T) {
		doc := `[{"out_layer":"a","protocol":"file","source":"x","fields":["F"],"hash_fields":["G"]}]`
		_, err := Parse([]byte(doc), "a.json")
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "hash_fields", v.Field)
	})

	t.Run("key subset check ignores case", func(t *testing.T) {
		doc := `[{"out_layer":"a","protocol":"file","source":"x","fields":["PARK_NAME"],"primary_key":["park_name"]}]`
		_, err := Parse([]byte(doc), "a.json")
		assert.NoError(t, err)
	})

	t.Run("duplicate layer names", func(t *testing.T) {
		doc := `[
			{"out_layer":"a","protocol":"file","source":"x","fields":["F"]},
			{"out_layer":"a","protocol":"file","source":"y","fields":["F"]}
		]`
		_, err := Parse([]byte(doc), "a.json")
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "out_layer", v.Field)
	})

	t.Run("empty fields list", func(t *testing.T) {
		doc := `[{"out_layer":"a","protocol":"file","source":"x","fields":[]}]`
		_, err := Parse([]byte(doc), "a.json")
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, "fields", v.Field)
	})
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse([]byte("{{{"), "broken.yaml")
	var fileErr *FileError
	assert.ErrorAs(t, err, &fileErr)

	_, err = Parse([]byte(""), "empty.yaml")
	assert.ErrorAs(t, err, &fileErr)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parks.json")
	require.NoError(t, os.WriteFile(path, []byte(parksJSON), 0o644))

	sources, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	sources := []Source{
		{OutLayer: "parks", Schedule: ScheduleWeekly},
		{OutLayer: "trails", Schedule: ScheduleMonthly},
		{OutLayer: "wells", Schedule: ScheduleWeekly},
	}

	assert.Len(t, FilterLayer(sources, ""), 3)
	assert.Equal(t, "trails", FilterLayer(sources, "trails")[0].OutLayer)
	assert.Empty(t, FilterLayer(sources, "nope"))

	weekly := FilterSchedule(sources, ScheduleWeekly)
	require.Len(t, weekly, 2)
	assert.Equal(t, "parks", weekly[0].OutLayer)
	assert.Len(t, FilterSchedule(sources, ""), 3)
	assert.Empty(t, FilterSchedule(sources, ScheduleAnnual))
}

func TestParseSchedule(t *testing.T) {
	for _, in := range []string{"d", "D", " d "} {
		got, err := ParseSchedule(in)
		require.NoError(t, err)
		assert.Equal(t, ScheduleDaily, got)
	}

	_, err := ParseSchedule("yearly")
	assert.Error(t, err)
}
