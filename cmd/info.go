package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/shapecodec/internal/shp"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.shp|file.zip>",
	Short: "Show header fields and record counts",
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
		return writeInfo(cmd.OutOrStdout(), summarize(args[0], coll), format)
	},
}

func init() {
	infoCmd.Flags().String("format", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(infoCmd)
}

// fileInfo is the printable summary of one read.
type fileInfo struct {
	Path       string    `json:"path" yaml:"path"`
	ShapeType  string    `json:"shape_type" yaml:"shape_type"`
	Version    int32     `json:"version" yaml:"version"`
	FileLength int32     `json:"file_length_words" yaml:"file_length_words"`
	Records    int       `json:"records" yaml:"records"`
	Nulls      int       `json:"nulls" yaml:"nulls"`
	Errors     int       `json:"errors" yaml:"errors"`
	BBox       []float64 `json:"bbox" yaml:"bbox,flow"`
	ZRange     []float64 `json:"z_range,omitempty" yaml:"z_range,flow,omitempty"`
	MRange     []float64 `json:"m_range,omitempty" yaml:"m_range,flow,omitempty"`
}

func summarize(path string, coll *shp.Collection) fileInfo {
	h := coll.Header
	info := fileInfo{
		Path:       path,
		ShapeType:  h.ShapeType.String(),
		Version:    h.Version,
		FileLength: h.FileLength,
		Records:    coll.Len(),
		Errors:     coll.Errors,
		BBox:       []float64{h.Bounds.MinX, h.Bounds.MinY, h.Bounds.MaxX, h.Bounds.MaxY},
	}
	for _, g := range coll.Geometries {
		if shp.IsEmpty(g) {
			info.Nulls++
		}
	}
	if h.ShapeType.HasZ() {
		info.ZRange = []float64{h.ZRange.Min, h.ZRange.Max}
	}
	measured := h.ShapeType.HasZ() || h.ShapeType.HasM()
	if measured && shp.HasMeasure(h.MRange.Min) && shp.HasMeasure(h.MRange.Max) {
		info.MRange = []float64{h.MRange.Min, h.MRange.Max}
	}
	return info
}

func writeInfo(out io.Writer, info fileInfo, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(info), "info: encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return eris.Wrap(err, "info: encode yaml")
		}
		return eris.Wrap(enc.Close(), "info: encode yaml")
	case "text", "":
	default:
		return eris.Errorf("info: unknown format %q", format)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "File:\t%s\n", info.Path)
	_, _ = fmt.Fprintf(w, "Shape type:\t%s\n", info.ShapeType)
	_, _ = fmt.Fprintf(w, "Version:\t%d\n", info.Version)
	_, _ = fmt.Fprintf(w, "File length:\t%d words\n", info.FileLength)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", info.Records)
	_, _ = fmt.Fprintf(w, "  Null:\t%d\n", info.Nulls)
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", info.Errors)
	_, _ = fmt.Fprintf(w, "Bounds:\t%g %g %g %g\n", info.BBox[0], info.BBox[1], info.BBox[2], info.BBox[3])
	if info.ZRange != nil {
		_, _ = fmt.Fprintf(w, "Z range:\t%g %g\n", info.ZRange[0], info.ZRange[1])
	}
	if info.MRange != nil {
		_, _ = fmt.Fprintf(w, "M range:\t%g %g\n", info.MRange[0], info.MRange[1])
	}
	return eris.Wrap(w.Flush(), "info: write")
}
