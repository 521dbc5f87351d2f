package gpkg

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGeometry_Header(t *testing.T) {
	g := orb.MultiPoint{{-123.5, 48.25}, {-120, 50}}

	blob, err := encodeGeometry(g, 4326)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(blob), 40)
	assert.Equal(t, byte('G'), blob[0])
	assert.Equal(t, byte('P'), blob[1])
	assert.Equal(t, byte(0x00), blob[2])
	assert.Equal(t, byte(0x03), blob[3])
	assert.Equal(t, uint32(4326), binary.LittleEndian.Uint32(blob[4:8]))

	envelope := make([]float64, 4)
	for i := range envelope {
		bits := binary.LittleEndian.Uint64(blob[8+8*i : 16+8*i])
		envelope[i] = math.Float64frombits(bits)
	}
	assert.Equal(t, []float64{-123.5, -120, 48.25, 50}, envelope, "minx maxx miny maxy")

	body, err := wkb.Unmarshal(blob[40:])
	require.NoError(t, err)
	assert.Equal(t, g, body)
}

func TestDecodeGeometry_RoundTrip(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Point{1000000, 500000},
		orb.MultiPoint{{1, 2}, {3, 4}},
		orb.MultiLineString{{{0, 0}, {10, 10}}},
		orb.MultiPolygon{{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}},
	}

	for _, g := range geoms {
		t.Run(g.GeoJSONType(), func(t *testing.T) {
			blob, err := encodeGeometry(g, 3005)
			require.NoError(t, err)

			got, srsID, err := decodeGeometry(blob)
			require.NoError(t, err)
			assert.Equal(t, 3005, srsID)
			assert.Equal(t, g, got)
		})
	}
}

func TestDecodeGeometry_NegativeSRS(t *testing.T) {
	blob, err := encodeGeometry(orb.Point{1, 2}, -1)
	require.NoError(t, err)

	_, srsID, err := decodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, -1, srsID)
}

func TestDecodeGeometry_BigEndianHeader(t *testing.T) {
	// Flags 0x00: big-endian header, no envelope. The WKB body
	// declares its own byte order independently.
	blob := []byte{'G', 'P', 0x00, 0x00}
	var srs [4]byte
	binary.BigEndian.PutUint32(srs[:], 3857)
	blob = append(blob, srs[:]...)
	blob = append(blob, wkb.MustMarshal(orb.Point{7, 8})...)

	g, srsID, err := decodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, 3857, srsID)
	assert.Equal(t, orb.Point{7, 8}, g)
}

func TestDecodeGeometry_Rejects(t *testing.T) {
	valid, err := encodeGeometry(orb.Point{1, 2}, 4326)
	require.NoError(t, err)

	tests := []struct {
		name string
		blob []byte
		want string
	}{
		{name: "truncated header", blob: valid[:6], want: "truncated"},
		{name: "bad magic", blob: append([]byte{'X', 'P'}, valid[2:]...), want: "bad magic"},
		{name: "unsupported version", blob: mutate(valid, 2, 0x01), want: "unsupported version"},
		{name: "extended encoding", blob: mutate(valid, 3, gpFlags|flagExtended), want: "extended"},
		{name: "empty geometry", blob: mutate(valid, 3, gpFlags|flagEmpty), want: "empty"},
		{name: "invalid envelope indicator", blob: mutate(valid, 3, 0x0B), want: "envelope indicator"},
		{name: "truncated envelope", blob: valid[:20], want: "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeGeometry(tt.blob)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEncodeGeometry_NilGeometry(t *testing.T) {
	_, err := encodeGeometry(nil, 4326)
	require.Error(t, err)
}

func mutate(blob []byte, i int, b byte) []byte {
	out := append([]byte(nil), blob...)
	out[i] = b
	return out
}
