// Package store loads decoded shapefiles into spatial databases and keeps
// a ledger of each load.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/attrs"
	"github.com/sells-group/shapecodec/internal/geomconv"
	"github.com/sells-group/shapecodec/internal/shp"
)

const defaultBatchSize = 5000

// LoadStatus is the lifecycle state of a load.
type LoadStatus string

const (
	LoadRunning  LoadStatus = "running"
	LoadComplete LoadStatus = "complete"
	LoadFailed   LoadStatus = "failed"
)

// Source is one decoded shapefile ready for loading.
type Source struct {
	Path      string
	ShapeType shp.ShapeType
	Features  []attrs.Feature
	SRID      int
}

// Load describes one load of a source into a table.
type Load struct {
	ID         string
	Table      string
	Source     string
	ShapeType  shp.ShapeType
	Records    int
	Loaded     int64
	Skipped    int
	Status     LoadStatus
	StartedAt  time.Time
	FinishedAt time.Time
}

// Loader persists features into a database table.
type Loader interface {
	Migrate(ctx context.Context) error
	Load(ctx context.Context, table string, src Source) (*Load, error)
	Close() error
}

// Columns is the column layout of every feature table.
var Columns = []string{"load_id", "record", "attrs", "geom"}

// featureRows converts features to rows matching Columns. Geometries that
// fail to convert are skipped; null geometries keep their row with a nil
// geometry.
func featureRows(loadID string, src Source) ([][]any, int, error) {
	srid := src.SRID
	if srid == 0 {
		srid = geomconv.DefaultSRID
	}

	rows := make([][]any, 0, len(src.Features))
	var skipped int
	for _, f := range src.Features {
		wkb, err := geomconv.EncodeWKB(f.Geometry, src.ShapeType, srid)
		if err != nil {
			zap.L().Debug("store: skipping record",
				zap.Int("record", f.Number),
				zap.Error(err),
			)
			skipped++
			continue
		}

		var props []byte
		if f.Attributes != nil {
			if props, err = json.Marshal(f.Attributes); err != nil {
				return nil, 0, eris.Wrapf(err, "store: marshal attributes for record %d", f.Number)
			}
		}

		var geomVal any
		if wkb != nil {
			geomVal = wkb
		}
		var propsVal any
		if props != nil {
			propsVal = string(props)
		}
		rows = append(rows, []any{loadID, f.Number, propsVal, geomVal})
	}
	return rows, skipped, nil
}

func batches(n, size int) [][2]int {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][2]int
	for i := 0; i < n; i += size {
		out = append(out, [2]int{i, min(i+size, n)})
	}
	return out
}
