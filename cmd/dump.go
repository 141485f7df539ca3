package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/attrs"
	"github.com/sells-group/shapecodec/internal/geomconv"
	"github.com/sells-group/shapecodec/internal/shp"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.shp|file.zip>",
	Short: "Print every record as WKT or GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		r, err := newReader()
		if err != nil {
			return err
		}
		coll, err := r.Open(args[0])
		if err != nil {
			return err
		}
		features, err := joinAttributes(args[0], coll)
		if err != nil {
			return err
		}
		return writeDump(cmd.OutOrStdout(), coll.ShapeType(), features, format)
	},
}

func init() {
	dumpCmd.Flags().String("format", "wkt", "output format: wkt or geojson")
	rootCmd.AddCommand(dumpCmd)
}

// joinAttributes pairs the decoded geometries with the .dbf rows next to
// path. Archives and shapefiles without a table get no attributes.
func joinAttributes(path string, coll *shp.Collection) ([]attrs.Feature, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return attrs.Join(coll, nil), nil
	}
	tbl, err := attrs.Read(path, attrs.Options{Encoding: cfg.Attrs.Encoding})
	switch {
	case errors.Is(err, attrs.ErrNoTable):
		zap.L().Debug("no attribute table", zap.String("path", path))
	case err != nil:
		return nil, err
	}
	return attrs.Join(coll, tbl), nil
}

type geoFeature struct {
	Type       string            `json:"type"`
	ID         int               `json:"id"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

// writeDump writes one line per feature.
func writeDump(out io.Writer, st shp.ShapeType, features []attrs.Feature, format string) error {
	if format != "wkt" && format != "geojson" {
		return eris.Errorf("dump: unknown format %q", format)
	}

	w := bufio.NewWriter(out)
	for _, f := range features {
		switch format {
		case "wkt":
			s, err := geomconv.EncodeWKT(f.Geometry, st)
			if err != nil {
				return eris.Wrapf(err, "dump: record %d", f.Number)
			}
			if s == "" {
				s = "EMPTY"
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\n", f.Number, s)
		case "geojson":
			g, err := geomconv.EncodeGeoJSON(f.Geometry, st)
			if err != nil {
				return eris.Wrapf(err, "dump: record %d", f.Number)
			}
			line, err := json.Marshal(geoFeature{Type: "Feature", ID: f.Number, Geometry: g, Properties: f.Attributes})
			if err != nil {
				return eris.Wrapf(err, "dump: record %d", f.Number)
			}
			_, _ = w.Write(line)
			_ = w.WriteByte('\n')
		}
	}
	return eris.Wrap(w.Flush(), "dump: write")
}
