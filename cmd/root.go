package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/config"
	"github.com/sells-group/shapecodec/internal/shp"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shapecodec",
	Short: "Read, write and load ESRI shapefiles",
	Long:  "Decodes and encodes ESRI shapefile geometry (.shp) and index (.shx) files, converts records to WKT, GeoJSON or EWKB, and loads them into SQLite or PostGIS.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			c.Read.Mode = mode
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "", "record lookup: auto, sequential or indexed (overrides read.mode)")
}

// newReader builds a shapefile reader from the read config.
func newReader() (*shp.Reader, error) {
	if err := cfg.Validate("read"); err != nil {
		return nil, err
	}
	mode, err := shp.ParseMode(cfg.Read.Mode)
	if err != nil {
		return nil, err
	}
	return &shp.Reader{
		Mode:        mode,
		Concurrency: cfg.Read.Concurrency,
		TempDir:     cfg.Read.TempDir,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
