package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/config"
	"github.com/sells-group/shapecodec/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.shp|file.zip>",
	Short: "Load a shapefile with its attributes into SQLite or PostGIS",
	Long: `Decodes every record, joins the .dbf attribute rows by position and
loads them into a table with columns load_id, record, attrs and geom.
Each load is recorded in the shapecodec_loads table.

The target table defaults to the lower-cased file name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyLoadFlags(cmd, &cfg.Store)
		if cfg.Store.Table == "" {
			cfg.Store.Table = defaultTable(args[0])
		}
		if err := cfg.Validate("load"); err != nil {
			return err
		}

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

		loader, err := newLoader(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer loader.Close() //nolint:errcheck

		if err := loader.Migrate(ctx); err != nil {
			return err
		}
		ld, err := loader.Load(ctx, cfg.Store.Table, store.Source{
			Path:      args[0],
			ShapeType: coll.ShapeType(),
			Features:  features,
			SRID:      cfg.Store.SRID,
		})
		if err != nil {
			return err
		}

		zap.L().Info("load finished",
			zap.String("load_id", ld.ID),
			zap.String("table", ld.Table),
			zap.Int64("loaded", ld.Loaded),
			zap.Int("skipped", ld.Skipped),
			zap.Int("decode_errors", coll.Errors),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "load %s: %d rows into %s (%d skipped, %d undecodable)\n",
			ld.ID, ld.Loaded, ld.Table, ld.Skipped, coll.Errors)
		return nil
	},
}

func init() {
	loadCmd.Flags().String("driver", "", "sqlite or postgres (overrides store.driver)")
	loadCmd.Flags().String("dsn", "", "database file or connection string (overrides store.database_url)")
	loadCmd.Flags().String("table", "", "target table (overrides store.table)")
	loadCmd.Flags().String("schema", "", "PostGIS schema (overrides store.schema)")
	loadCmd.Flags().Int("srid", 0, "SRID written into EWKB (overrides store.srid)")
	loadCmd.Flags().Int("batch-size", 0, "rows per COPY or transaction (overrides store.batch_size)")
	rootCmd.AddCommand(loadCmd)
}

// applyLoadFlags copies set flags over the store config.
func applyLoadFlags(cmd *cobra.Command, sc *config.StoreConfig) {
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		sc.Driver = v
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		sc.DatabaseURL = v
	}
	if v, _ := cmd.Flags().GetString("table"); v != "" {
		sc.Table = v
	}
	if v, _ := cmd.Flags().GetString("schema"); v != "" {
		sc.Schema = v
	}
	if v, _ := cmd.Flags().GetInt("srid"); v > 0 {
		sc.SRID = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		sc.BatchSize = v
	}
}

// defaultTable derives a table name from a file path.
func defaultTable(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ToLower(name)
}

func poolConfig(sc config.StoreConfig) *store.PoolConfig {
	return &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns}
}

func newLoader(ctx context.Context, sc config.StoreConfig) (store.Loader, error) {
	switch sc.Driver {
	case "sqlite":
		s, err := store.NewSQLite(sc.DatabaseURL, sc.BatchSize)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostGIS(ctx, sc.DatabaseURL, sc.Schema, sc.BatchSize, poolConfig(sc))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("load: unknown driver %q", sc.Driver)
	}
}
