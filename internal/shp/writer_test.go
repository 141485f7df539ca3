package shp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gshp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_ReadableByGoShp(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "plan")
	geoms := []Geometry{
		Polygon{Rings: [][]Coordinate{square, hole}},
		Polygon{Rings: [][]Coordinate{{XY(-80, 25), XY(-80, 26), XY(-79, 26), XY(-79, 25), XY(-80, 25)}}},
	}
	require.NoError(t, Create(base, TypePolygon, geoms))

	r, err := gshp.Open(base + ".shp")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var got []*gshp.Polygon
	for r.Next() {
		_, s := r.Shape()
		p, ok := s.(*gshp.Polygon)
		require.True(t, ok, "unexpected %T", s)
		got = append(got, p)
	}
	require.Len(t, got, 2)

	assert.Equal(t, int32(2), got[0].NumParts)
	assert.Equal(t, []int32{0, 5}, got[0].Parts)
	require.Len(t, got[0].Points, 10)
	assert.Equal(t, 4.0, got[0].Points[6].X)
	assert.Equal(t, 2.0, got[0].Points[6].Y)
	assert.Equal(t, -79.0, got[1].BBox().MaxX)
}

func TestWrite_WithoutIndex(t *testing.T) {
	var shpBuf bytes.Buffer
	require.NoError(t, Write(&shpBuf, nil, TypePoint, threePoints()))

	var r Reader
	coll, err := r.Read(&shpBuf)
	require.NoError(t, err)
	assert.Equal(t, 3, coll.Len())
}

func TestWrite_KindMismatchFails(t *testing.T) {
	var shpBuf, shxBuf bytes.Buffer
	err := Write(&shpBuf, &shxBuf, TypePoint, []Geometry{Point{XY(1, 1)}, Polygon{Rings: [][]Coordinate{square}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestWrite_UnsupportedType(t *testing.T) {
	var shpBuf bytes.Buffer
	err := Write(&shpBuf, nil, TypeMultiPatch, nil)
	var ue *UnsupportedShapeTypeError
	assert.True(t, errors.As(err, &ue))
}

func TestWrite_NullRecordsKeepNumbering(t *testing.T) {
	geoms := []Geometry{Null{}, MultiPoint{Points: line}, Null{}}
	shpData, shxData := writeFile(t, TypeMultiPoint, geoms)

	_, refs, err := ReadIndex(bytes.NewReader(shxData))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, int32(2), refs[0].Length)
	assert.Equal(t, int32(2), refs[2].Length)

	off := refs[2].ByteOffset()
	assert.Equal(t, be(t, 3, 2), shpData[off:off+8])
	assert.Equal(t, le(t, 0), shpData[off+8:off+12])
}

func TestCreate_BadDirectory(t *testing.T) {
	err := Create(filepath.Join(t.TempDir(), "missing", "plan"), TypePoint, nil)
	require.Error(t, err)
}

func TestCreate_FilesMatchWrite(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "pts")
	require.NoError(t, Create(base, TypePoint, threePoints()))

	shpData, shxData := writeFile(t, TypePoint, threePoints())
	onDisk, err := os.ReadFile(base + ".shp")
	require.NoError(t, err)
	assert.Equal(t, shpData, onDisk)

	onDisk, err = os.ReadFile(base + ".shx")
	require.NoError(t, err)
	assert.Equal(t, shxData, onDisk)
}
