package gpkg

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// GeoPackage binary header flags. We always write a little-endian
// header with an XY envelope (envelope indicator 1); reads accept any
// standard header.
const (
	gpVersion = 0x00
	gpFlags   = 0x03

	flagByteOrderLE = 0x01
	flagEmpty       = 0x10
	flagExtended    = 0x20
)

// envelopeSizes maps the envelope indicator code (header flag bits 1-3)
// to the envelope's byte length.
var envelopeSizes = [...]int{0, 32, 48, 48, 64}

// encodeGeometry renders g as a standard GeoPackage binary blob: the
// two-byte GP magic, version, flags, the SRS id, the XY envelope, then
// the little-endian WKB body.
func encodeGeometry(g orb.Geometry, srsID int) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("encode geometry: no geometry")
	}

	body, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}

	bound := g.Bound()
	buf := make([]byte, 0, 8+32+len(body))
	buf = append(buf, 'G', 'P', gpVersion, gpFlags)

	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], uint32(int32(srsID)))
	buf = append(buf, scratch[:4]...)

	for _, v := range []float64{bound.Min[0], bound.Max[0], bound.Min[1], bound.Max[1]} {
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v))
		buf = append(buf, scratch[:]...)
	}

	return append(buf, body...), nil
}

// decodeGeometry parses a standard GeoPackage binary blob back into a
// geometry and its SRS id. Extended (vendor) encodings and empty
// geometries are rejected.
func decodeGeometry(blob []byte) (orb.Geometry, int, error) {
	if len(blob) < 8 {
		return nil, 0, fmt.Errorf("decode geometry: truncated header (%d bytes)", len(blob))
	}
	if blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, fmt.Errorf("decode geometry: bad magic %q", blob[:2])
	}
	if blob[2] != gpVersion {
		return nil, 0, fmt.Errorf("decode geometry: unsupported version %d", blob[2])
	}

	flags := blob[3]
	if flags&flagExtended != 0 {
		return nil, 0, fmt.Errorf("decode geometry: extended encoding is not supported")
	}

	order := binary.ByteOrder(binary.BigEndian)
	if flags&flagByteOrderLE != 0 {
		order = binary.LittleEndian
	}

	envelope := int(flags>>1) & 0x07
	if envelope >= len(envelopeSizes) {
		return nil, 0, fmt.Errorf("decode geometry: invalid envelope indicator %d", envelope)
	}
	headerLen := 8 + envelopeSizes[envelope]
	if len(blob) < headerLen {
		return nil, 0, fmt.Errorf("decode geometry: truncated envelope (%d bytes)", len(blob))
	}

	srsID := int(int32(order.Uint32(blob[4:8])))
	if flags&flagEmpty != 0 {
		return nil, 0, fmt.Errorf("decode geometry: empty geometry")
	}

	g, err := wkb.Unmarshal(blob[headerLen:])
	if err != nil {
		return nil, 0, fmt.Errorf("decode geometry: %w", err)
	}

	return g, srsID, nil
}
