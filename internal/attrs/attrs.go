// Package attrs reads the dBASE attribute table that accompanies a
// shapefile and pairs its rows with decoded geometries.
package attrs

import (
	"os"
	"path/filepath"
	"strings"

	gshp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/shp"
)

// ErrNoTable is returned when a shapefile has no .dbf sibling.
var ErrNoTable = eris.New("attrs: no attribute table")

// Field describes one dBASE column.
type Field struct {
	Name      string
	Type      byte
	Size      int
	Precision int
}

// Table holds a decoded attribute table. Values are trimmed strings in the
// table's code page converted to UTF-8.
type Table struct {
	Fields []Field
	Rows   [][]string
}

// Options controls attribute reads.
type Options struct {
	// Encoding is the code page used when no .cpg file is present.
	// Empty means values are used as stored.
	Encoding string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of the named field, ignoring case, or -1.
func (t *Table) Column(name string) int {
	for i, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Record returns row i keyed by field name, or nil when out of range.
func (t *Table) Record(i int) map[string]string {
	if t == nil || i < 0 || i >= len(t.Rows) {
		return nil
	}
	rec := make(map[string]string, len(t.Fields))
	for j, f := range t.Fields {
		rec[f.Name] = t.Rows[i][j]
	}
	return rec
}

// Read loads the .dbf table next to shpPath, decoding values with the code
// page named by the .cpg sibling when one exists.
func Read(shpPath string, opts Options) (*Table, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	if _, err := os.Stat(base + ".dbf"); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoTable
		}
		return nil, eris.Wrapf(err, "attrs: stat %s.dbf", base)
	}

	enc, err := readCodePage(base+".cpg", opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader, err := gshp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "attrs: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	raw := reader.Fields()
	t := &Table{Fields: make([]Field, len(raw))}
	for i, f := range raw {
		t.Fields[i] = Field{
			Name:      strings.TrimRight(f.String(), "\x00"),
			Type:      f.Fieldtype,
			Size:      int(f.Size),
			Precision: int(f.Precision),
		}
	}

	n := reader.AttributeCount()
	t.Rows = make([][]string, n)
	for row := 0; row < n; row++ {
		vals := make([]string, len(raw))
		for col := range raw {
			val := strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(row, col), "\x00"))
			if enc != nil && val != "" {
				if val, err = enc.NewDecoder().String(val); err != nil {
					return nil, eris.Wrapf(err, "attrs: decode row %d field %s", row, t.Fields[col].Name)
				}
			}
			vals[col] = val
		}
		t.Rows[row] = vals
	}

	zap.L().Debug("attrs: read table",
		zap.String("path", base+".dbf"),
		zap.Int("fields", len(t.Fields)),
		zap.Int("rows", n),
	)
	return t, nil
}

// Feature is a geometry with its attribute row.
type Feature struct {
	Number     int
	Geometry   shp.Geometry
	Attributes map[string]string
}

// Join pairs each geometry in c with the table row of its record number.
// Every geometry is kept; records past the end of the table get nil
// attributes.
func Join(c *shp.Collection, t *Table) []Feature {
	out := make([]Feature, c.Len())
	missing := 0
	for i, g := range c.Geometries {
		num := c.Number(i)
		row := t.Record(num - 1)
		if row == nil && t != nil {
			missing++
		}
		out[i] = Feature{Number: num, Geometry: g, Attributes: row}
	}
	if missing > 0 {
		zap.L().Warn("attrs: records have no attribute row",
			zap.Int("missing", missing),
			zap.Int("rows", t.Len()),
		)
	}
	return out
}
