package attrs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shapecodec/internal/shp"
)

type column struct {
	name string
	kind byte
	size int
}

// writeDBF writes a minimal dBASE III table. Values are stored as given,
// padded with spaces.
func writeDBF(t *testing.T, path string, cols []column, rows [][]string) {
	t.Helper()
	recLen := 1
	for _, c := range cols {
		recLen += c.size
	}
	hdrLen := 32 + 32*len(cols) + 1

	var buf bytes.Buffer
	buf.Write([]byte{0x03, 124, 1, 1})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(rows))))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(hdrLen)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(recLen)))
	buf.Write(make([]byte, 20))
	for _, c := range cols {
		name := make([]byte, 11)
		copy(name, c.name)
		buf.Write(name)
		buf.WriteByte(c.kind)
		buf.Write(make([]byte, 4))
		buf.WriteByte(byte(c.size))
		buf.WriteByte(0)
		buf.Write(make([]byte, 14))
	}
	buf.WriteByte(0x0D)
	for _, row := range rows {
		buf.WriteByte(' ')
		for i, c := range cols {
			v := []byte(row[i])
			buf.Write(v)
			buf.Write(bytes.Repeat([]byte(" "), c.size-len(v)))
		}
	}
	buf.WriteByte(0x1A)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// fixture writes parcels.shp/.shx/.dbf with n points and returns the .shp path.
func fixture(t *testing.T, rows [][]string) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "parcels")
	geoms := make([]shp.Geometry, len(rows))
	for i := range rows {
		geoms[i] = shp.Point{Coordinate: shp.XY(float64(i), float64(i))}
	}
	require.NoError(t, shp.Create(base, shp.TypePoint, geoms))
	writeDBF(t, base+".dbf", []column{{"NAME", 'C', 12}, {"POP", 'N', 8}}, rows)
	return base + ".shp"
}

func TestRead(t *testing.T) {
	path := fixture(t, [][]string{{"Austin", "961855"}, {"Waco", "138486"}})

	tbl, err := Read(path, Options{})
	require.NoError(t, err)

	require.Len(t, tbl.Fields, 2)
	assert.Equal(t, Field{Name: "NAME", Type: 'C', Size: 12}, tbl.Fields[0])
	assert.Equal(t, "POP", tbl.Fields[1].Name)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"Waco", "138486"}, tbl.Rows[1])

	assert.Equal(t, 1, tbl.Column("pop"))
	assert.Equal(t, -1, tbl.Column("missing"))
	assert.Equal(t, map[string]string{"NAME": "Austin", "POP": "961855"}, tbl.Record(0))
	assert.Nil(t, tbl.Record(2))
}

func TestRead_CodePageFile(t *testing.T) {
	path := fixture(t, [][]string{{"Caf\xe9", "1"}})
	cpg := filepath.Join(filepath.Dir(path), "parcels.cpg")
	require.NoError(t, os.WriteFile(cpg, []byte("1252\r\n"), 0o644))

	tbl, err := Read(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Café", tbl.Rows[0][0])
}

func TestRead_FallbackEncoding(t *testing.T) {
	path := fixture(t, [][]string{{"Se\xf1or", "1"}})

	tbl, err := Read(path, Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "Señor", tbl.Rows[0][0])
}

func TestRead_BadCodePage(t *testing.T) {
	path := fixture(t, [][]string{{"x", "1"}})
	cpg := filepath.Join(filepath.Dir(path), "parcels.cpg")
	require.NoError(t, os.WriteFile(cpg, []byte("klingon"), 0o644))

	_, err := Read(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "klingon")
}

func TestRead_NoTable(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bare")
	require.NoError(t, shp.Create(base, shp.TypePoint, nil))

	_, err := Read(base+".shp", Options{})
	assert.True(t, errors.Is(err, ErrNoTable))
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name    string
		utf8    bool
		wantErr bool
	}{
		{"UTF-8", true, false},
		{"utf8", true, false},
		{"65001", true, false},
		{"", true, false},
		{"1252", false, false},
		{"1250", false, false},
		{"88591", false, false},
		{"ISO 8859-1", false, false},
		{"ISO8859_2", false, false},
		{"437", false, false},
		{"latin1", false, false},
		{"not-a-charset", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := LookupEncoding(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.utf8, enc == nil)
		})
	}
}

func TestJoin(t *testing.T) {
	tbl := &Table{
		Fields: []Field{{Name: "ID"}},
		Rows:   [][]string{{"a"}, {"b"}},
	}
	coll := &shp.Collection{Geometries: []shp.Geometry{shp.Point{Coordinate: shp.XY(1, 1)}, shp.Null{}, shp.Point{Coordinate: shp.XY(2, 2)}}}

	features := Join(coll, tbl)
	require.Len(t, features, 3)
	assert.Equal(t, 1, features[0].Number)
	assert.Equal(t, "b", features[1].Attributes["ID"])
	assert.Equal(t, shp.Null{}, features[1].Geometry)
	assert.Nil(t, features[2].Attributes)
}

func TestJoin_NilTable(t *testing.T) {
	features := Join(&shp.Collection{Geometries: []shp.Geometry{shp.Null{}}}, nil)
	require.Len(t, features, 1)
	assert.Nil(t, features[0].Attributes)
}

func TestJoin_SkippedRecordKeepsRowAlignment(t *testing.T) {
	path := fixture(t, [][]string{{"one", "1"}, {"two", "2"}, {"three", "3"}})

	// Give record 2 a shape type that does not match the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	off := shp.HeaderBytes + (8 + 20) + 8
	binary.LittleEndian.PutUint32(data[off:], uint32(shp.TypePolyLine))

	var r shp.Reader
	coll, err := r.Read(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, coll.Errors)
	require.Equal(t, 2, coll.Len())

	tbl, err := Read(path, Options{})
	require.NoError(t, err)

	features := Join(coll, tbl)
	require.Len(t, features, 2)
	assert.Equal(t, 1, features[0].Number)
	assert.Equal(t, "one", features[0].Attributes["NAME"])
	assert.Equal(t, 3, features[1].Number)
	pt, ok := features[1].Geometry.(shp.Point)
	require.True(t, ok)
	assert.Equal(t, [2]float64{2, 2}, [2]float64{pt.X, pt.Y})
	assert.Equal(t, "three", features[1].Attributes["NAME"])
}
