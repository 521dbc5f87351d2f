package proj

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, code := range []int{4326, 3857, 3005} {
		crs, err := Lookup(code)
		require.NoError(t, err)
		assert.Equal(t, code, crs.Code)
		assert.NotEmpty(t, crs.Name)
		assert.NotEmpty(t, crs.WKT)
		assert.NotNil(t, crs.Forward)
		assert.NotNil(t, crs.Inverse)
	}

	_, err := Lookup(26910)
	var unknown *UnknownCRSError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 26910, unknown.Code)
}

func TestCodes(t *testing.T) {
	assert.Equal(t, []int{3005, 3857, 4326}, Codes())
}

func TestParseCRS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "bare code", in: "3005", want: 3005},
		{name: "epsg prefix", in: "EPSG:4326", want: 4326},
		{name: "lowercase prefix", in: "epsg:3857", want: 3857},
		{name: "ogc urn", in: "urn:ogc:def:crs:EPSG::3005", want: 3005},
		{name: "ogc urn with version", in: "urn:ogc:def:crs:EPSG:9.9:4326", want: 4326},
		{name: "crs84 alias", in: "CRS84", want: 4326},
		{name: "crs84 urn", in: "urn:ogc:def:crs:OGC:1.3:CRS84", want: 4326},
		{name: "surrounding whitespace", in: "  EPSG:3005 ", want: 3005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCRS(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, in := range []string{"", "ESRI:102190", "EPSG:", "not a crs"} {
		_, err := ParseCRS(in)
		var unknown *UnknownCRSError
		assert.ErrorAs(t, err, &unknown, "input %q", in)
	}
}

// The projection origin of BC Albers maps to the false easting exactly.
func TestBCAlbers_Origin(t *testing.T) {
	got := bcAlbersForward(orb.Point{-126, 45})
	assert.InDelta(t, 1000000, got[0], 1e-6)
	assert.InDelta(t, 0, got[1], 1e-6)
}

func TestBCAlbers_RoundTrip(t *testing.T) {
	points := []orb.Point{
		{-123.3656, 48.4284}, // Victoria
		{-122.9574, 50.1163}, // Whistler
		{-128.6032, 54.5182}, // Terrace
		{-120.3273, 55.7558}, // northeast BC
		{-126, 45},           // projection origin
	}

	for _, p := range points {
		back := bcAlbersInverse(bcAlbersForward(p))
		assert.InDelta(t, p[0], back[0], 1e-9)
		assert.InDelta(t, p[1], back[1], 1e-9)
	}
}

// Northings grow with latitude and eastings grow with longitude anywhere
// in the province.
func TestBCAlbers_Monotone(t *testing.T) {
	south := bcAlbersForward(orb.Point{-123, 49})
	north := bcAlbersForward(orb.Point{-123, 55})
	west := bcAlbersForward(orb.Point{-130, 52})
	east := bcAlbersForward(orb.Point{-118, 52})

	assert.Greater(t, north[1], south[1])
	assert.Greater(t, east[0], west[0])
}

func TestTransform(t *testing.T) {
	line := orb.LineString{{-123.3656, 48.4284}, {-123.3, 48.5}}

	t.Run("same system clones", func(t *testing.T) {
		got, err := Transform(line, 4326, 4326)
		require.NoError(t, err)
		assert.Equal(t, orb.Geometry(line), got)

		// Mutating the result must not touch the input.
		got.(orb.LineString)[0][0] = -999
		assert.Equal(t, -123.3656, line[0][0])
	})

	t.Run("wgs84 to albers and back", func(t *testing.T) {
		albers, err := Transform(line, 4326, 3005)
		require.NoError(t, err)
		back, err := Transform(albers, 3005, 4326)
		require.NoError(t, err)

		want := line
		got := back.(orb.LineString)
		require.Len(t, got, len(want))
		for i := range want {
			assert.InDelta(t, want[i][0], got[i][0], 1e-9)
			assert.InDelta(t, want[i][1], got[i][1], 1e-9)
		}
	})

	t.Run("mercator to albers composes through wgs84", func(t *testing.T) {
		merc, err := Transform(line, 4326, 3857)
		require.NoError(t, err)
		direct, err := Transform(line, 4326, 3005)
		require.NoError(t, err)
		composed, err := Transform(merc, 3857, 3005)
		require.NoError(t, err)

		d := direct.(orb.LineString)
		c := composed.(orb.LineString)
		require.Len(t, c, len(d))
		for i := range d {
			assert.InDelta(t, d[i][0], c[i][0], 1e-6)
			assert.InDelta(t, d[i][1], c[i][1], 1e-6)
		}
	})

	t.Run("unregistered source", func(t *testing.T) {
		_, err := Transform(line, 26910, 3005)
		var unknown *UnknownCRSError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("unregistered target", func(t *testing.T) {
		_, err := Transform(line, 4326, 26910)
		var unknown *UnknownCRSError
		assert.ErrorAs(t, err, &unknown)
	})
}
