package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shapecodec/internal/attrs"
	"github.com/sells-group/shapecodec/internal/config"
	"github.com/sells-group/shapecodec/internal/shp"
	"github.com/sells-group/shapecodec/internal/store"
)

func samplePoints() []shp.Geometry {
	return []shp.Geometry{
		shp.Point{Coordinate: shp.XYZ(1, 2, 3)},
		shp.Null{},
		shp.Point{Coordinate: shp.XYZ(4, 5, 6)},
	}
}

// sampleFile writes sample.shp/.shx into a temp dir and returns the .shp path.
func sampleFile(t *testing.T) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "Sample")
	require.NoError(t, shp.Create(base, shp.TypePointZ, samplePoints()))
	return base + ".shp"
}

func sampleCollection() *shp.Collection {
	geoms := samplePoints()
	return &shp.Collection{Header: shp.NewHeader(shp.TypePointZ, geoms), Geometries: geoms, Errors: 1}
}

func TestSummarize(t *testing.T) {
	info := summarize("a.shp", sampleCollection())
	assert.Equal(t, "PointZ", info.ShapeType)
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 1, info.Nulls)
	assert.Equal(t, 1, info.Errors)
	assert.Equal(t, []float64{1, 2, 4, 5}, info.BBox)
	assert.Equal(t, []float64{3, 6}, info.ZRange)
	assert.Nil(t, info.MRange)
}

func TestWriteInfo_Formats(t *testing.T) {
	info := summarize("a.shp", sampleCollection())

	var buf bytes.Buffer
	require.NoError(t, writeInfo(&buf, info, "text"))
	assert.Contains(t, buf.String(), "PointZ")
	assert.Contains(t, buf.String(), "Z range:")
	assert.NotContains(t, buf.String(), "M range:")

	buf.Reset()
	require.NoError(t, writeInfo(&buf, info, "json"))
	var decoded fileInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, info, decoded)

	buf.Reset()
	require.NoError(t, writeInfo(&buf, info, "yaml"))
	assert.Contains(t, buf.String(), "shape_type: PointZ")
	assert.Contains(t, buf.String(), "records: 3")

	assert.Error(t, writeInfo(&buf, info, "xml"))
}

func TestWriteDump_WKT(t *testing.T) {
	features := attrs.Join(&shp.Collection{Geometries: samplePoints()}, nil)

	var buf bytes.Buffer
	require.NoError(t, writeDump(&buf, shp.TypePointZ, features, "wkt"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "1\tPOINT"), lines[0])
	assert.Equal(t, "2\tEMPTY", lines[1])
}

func TestWriteDump_GeoJSON(t *testing.T) {
	tbl := &attrs.Table{
		Fields: []attrs.Field{{Name: "NAME"}},
		Rows:   [][]string{{"a"}, {"b"}, {"c"}},
	}
	features := attrs.Join(&shp.Collection{Geometries: samplePoints()}, tbl)

	var buf bytes.Buffer
	require.NoError(t, writeDump(&buf, shp.TypePointZ, features, "geojson"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var f struct {
		Type     string `json:"type"`
		ID       int    `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]string `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &f))
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, 3, f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{4, 5, 6}, f.Geometry.Coordinates)
	assert.Equal(t, "c", f.Properties["NAME"])

	assert.Contains(t, lines[1], `"geometry":null`)
}

func TestWriteDump_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeDump(&buf, shp.TypePoint, nil, "kml"))
}

func TestJoinAttributes_NoTable(t *testing.T) {
	cfg = &config.Config{}
	path := sampleFile(t)
	coll, err := (&shp.Reader{}).Open(path)
	require.NoError(t, err)

	features, err := joinAttributes(path, coll)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Nil(t, features[0].Attributes)
}

func TestDefaultTable(t *testing.T) {
	assert.Equal(t, "tl_2024_us_county", defaultTable("/data/TL_2024_US_COUNTY.shp"))
	assert.Equal(t, "roads", defaultTable("roads.zip"))
}

func TestPoolConfig(t *testing.T) {
	pc := poolConfig(config.StoreConfig{MaxConns: 8, MinConns: 2})
	assert.Equal(t, &store.PoolConfig{MaxConns: 8, MinConns: 2}, pc)
}

func TestInfoCommand(t *testing.T) {
	path := sampleFile(t)

	out, err := execute(t, "info", "--format", "json", path)
	require.NoError(t, err)

	var info fileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, "PointZ", info.ShapeType)
}

func TestInfoCommand_SequentialMode(t *testing.T) {
	path := sampleFile(t)
	require.NoError(t, os.Remove(strings.TrimSuffix(path, ".shp")+".shx"))

	_, err := execute(t, "info", "--mode", "indexed", path)
	require.Error(t, err)

	out, err := execute(t, "info", "--mode", "sequential", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Records:")
}

func TestInfoCommand_BadMode(t *testing.T) {
	_, err := execute(t, "info", "--mode", "random", sampleFile(t))
	require.Error(t, err)
}

func TestRewriteCommand(t *testing.T) {
	path := sampleFile(t)
	outBase := filepath.Join(t.TempDir(), "copy")

	out, err := execute(t, "rewrite", path, outBase)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 records")

	for _, ext := range []string{".shp", ".shx"} {
		want, err := os.ReadFile(strings.TrimSuffix(path, ".shp") + ext)
		require.NoError(t, err)
		got, err := os.ReadFile(outBase + ext)
		require.NoError(t, err)
		assert.Equal(t, want, got, ext)
	}
}

func TestIndexCommand(t *testing.T) {
	path := sampleFile(t)
	shx := strings.TrimSuffix(path, ".shp") + ".shx"
	want, err := os.ReadFile(shx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(shx))

	out, err := execute(t, "index", path)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 records")

	got, err := os.ReadFile(shx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndexCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "index", filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}

func TestDumpCommand(t *testing.T) {
	out, err := execute(t, "dump", sampleFile(t))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))
	assert.Contains(t, out, "2\tEMPTY")
}

func TestLoadCommand_SQLite(t *testing.T) {
	path := sampleFile(t)
	dsn := filepath.Join(t.TempDir(), "gis.db")

	out, err := execute(t, "load", "--driver", "sqlite", "--dsn", dsn, path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows into sample")

	_, err = os.Stat(dsn)
	require.NoError(t, err)
}

func TestLoadCommand_BadDriver(t *testing.T) {
	_, err := execute(t, "load", "--driver", "oracle", sampleFile(t))
	require.Error(t, err)
}
