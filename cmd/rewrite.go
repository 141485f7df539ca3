package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/shp"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <in.shp|in.zip> <outbase>",
	Short: "Decode a shapefile and encode it again as <outbase>.shp and <outbase>.shx",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReader()
		if err != nil {
			return err
		}
		coll, err := r.Open(args[0])
		if err != nil {
			return err
		}

		base := strings.TrimSuffix(args[1], filepath.Ext(args[1]))
		if err := shp.Create(base, coll.ShapeType(), coll.Geometries); err != nil {
			return eris.Wrapf(err, "rewrite: %s", base)
		}

		zap.L().Info("rewrote shapefile",
			zap.String("in", args[0]),
			zap.String("out", base),
			zap.Int("records", coll.Len()),
			zap.Int("dropped", coll.Errors),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s.shp\n", coll.Len(), base)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
}
