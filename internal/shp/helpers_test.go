package shp

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nanMarker stands in for NaN so decoded geometries can be compared with
// assert.Equal.
const nanMarker = -123456.789

func canonCoords(cs []Coordinate) []Coordinate {
	if cs == nil {
		return nil
	}
	out := make([]Coordinate, len(cs))
	for i, c := range cs {
		if math.IsNaN(c.Z) {
			c.Z = nanMarker
		}
		if math.IsNaN(c.M) {
			c.M = nanMarker
		}
		out[i] = c
	}
	return out
}

func canonParts(parts [][]Coordinate) [][]Coordinate {
	out := make([][]Coordinate, len(parts))
	for i, p := range parts {
		out[i] = canonCoords(p)
	}
	return out
}

func canon(g Geometry) Geometry {
	switch g := g.(type) {
	case Point:
		return Point{Coordinate: canonCoords([]Coordinate{g.Coordinate})[0]}
	case MultiPoint:
		return MultiPoint{Points: canonCoords(g.Points)}
	case PolyLine:
		return PolyLine{Parts: canonParts(g.Parts)}
	case Polygon:
		return Polygon{Rings: canonParts(g.Rings)}
	default:
		return g
	}
}

func assertGeometry(t *testing.T, want, got Geometry) {
	t.Helper()
	assert.Equal(t, canon(want), canon(got))
}

// pack encodes int32 and float64 values in the given order.
func pack(t *testing.T, order binary.ByteOrder, vals ...any) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range vals {
		switch v := v.(type) {
		case int:
			require.NoError(t, binary.Write(&buf, order, int32(v)))
		case int32, float64:
			require.NoError(t, binary.Write(&buf, order, v))
		default:
			t.Fatalf("pack: unsupported %T", v)
		}
	}
	return buf.Bytes()
}

func le(t *testing.T, vals ...any) []byte { return pack(t, binary.LittleEndian, vals...) }
func be(t *testing.T, vals ...any) []byte { return pack(t, binary.BigEndian, vals...) }

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// writeFile encodes geoms and returns the .shp and .shx bytes.
func writeFile(t *testing.T, st ShapeType, geoms []Geometry) ([]byte, []byte) {
	t.Helper()
	var shpBuf, shxBuf bytes.Buffer
	require.NoError(t, Write(&shpBuf, &shxBuf, st, geoms))
	return shpBuf.Bytes(), shxBuf.Bytes()
}

// readerOnly hides every method but Read, so the source cannot seek.
type readerOnly struct {
	r *bytes.Reader
}

func (r readerOnly) Read(p []byte) (int, error) { return r.r.Read(p) }
