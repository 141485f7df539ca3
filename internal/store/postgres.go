package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/geomconv"
)

// Pool is the subset of pgxpool.Pool used by PostGIS. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PostGIS loads features into PostGIS tables with the COPY protocol.
type PostGIS struct {
	pool      Pool
	schema    string
	batchSize int
	closeFn   func()
}

// NewPostGIS connects to connString and returns a PostGIS loader.
func NewPostGIS(ctx context.Context, connString, schema string, batchSize int, poolCfg *PoolConfig) (*PostGIS, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgis: ping")
	}
	s := NewPostGISWithPool(pool, schema, batchSize)
	s.closeFn = pool.Close
	return s, nil
}

// NewPostGISWithPool wraps an existing pool.
func NewPostGISWithPool(pool Pool, schema string, batchSize int) *PostGIS {
	if schema == "" {
		schema = "public"
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PostGIS{pool: pool, schema: schema, batchSize: batchSize}
}

const postgisMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS shapecodec_loads (
	id          TEXT PRIMARY KEY,
	table_name  TEXT NOT NULL,
	source      TEXT NOT NULL,
	shape_type  TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	loaded      BIGINT NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_shapecodec_loads_table ON shapecodec_loads(table_name);
`

// Migrate creates the load ledger.
func (s *PostGIS) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgisMigration)
	return eris.Wrap(err, "postgis: migrate")
}

// Close releases the pool when NewPostGIS created it.
func (s *PostGIS) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostGIS) createTable(ctx context.Context, table string, srid int) error {
	ident := pgx.Identifier{s.schema, table}.Sanitize()
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	load_id TEXT NOT NULL,
	record  INTEGER NOT NULL,
	attrs   JSONB,
	geom    geometry(Geometry, %d)
)`, ident, srid)
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "postgis: create table %s", ident)
	}
	return nil
}

// Load copies src into table, creating it when needed, and records the
// load in the ledger.
func (s *PostGIS) Load(ctx context.Context, table string, src Source) (*Load, error) {
	if table == "" {
		return nil, eris.New("postgis: table name is required")
	}
	if src.SRID == 0 {
		src.SRID = geomconv.DefaultSRID
	}

	ld := &Load{
		ID:        uuid.New().String(),
		Table:     table,
		Source:    src.Path,
		ShapeType: src.ShapeType,
		Records:   len(src.Features),
		Status:    LoadRunning,
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(
		zap.String("component", "store.postgis"),
		zap.String("load_id", ld.ID),
		zap.String("table", s.schema+"."+table),
	)

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO shapecodec_loads (id, table_name, source, shape_type, records, status, started_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ld.ID, table, src.Path, src.ShapeType.String(), ld.Records, string(LoadRunning), ld.StartedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgis: insert load")
	}

	loadErr := s.copyFeatures(ctx, table, src, ld, log)

	ld.FinishedAt = time.Now().UTC()
	ld.Status = LoadComplete
	if loadErr != nil {
		ld.Status = LoadFailed
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE shapecodec_loads SET loaded = $1, skipped = $2, status = $3, finished_at = $4 WHERE id = $5`,
		ld.Loaded, ld.Skipped, string(ld.Status), ld.FinishedAt, ld.ID,
	); err != nil && loadErr == nil {
		loadErr = eris.Wrapf(err, "postgis: finish load %s", ld.ID)
	}
	if loadErr != nil {
		return ld, loadErr
	}

	log.Info("load complete", zap.Int64("loaded", ld.Loaded), zap.Int("skipped", ld.Skipped))
	return ld, nil
}

func (s *PostGIS) copyFeatures(ctx context.Context, table string, src Source, ld *Load, log *zap.Logger) error {
	if err := s.createTable(ctx, table, src.SRID); err != nil {
		return err
	}

	rows, skipped, err := featureRows(ld.ID, src)
	if err != nil {
		return err
	}
	ld.Skipped = skipped

	for _, b := range batches(len(rows), s.batchSize) {
		n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.schema, table}, Columns, pgx.CopyFromRows(rows[b[0]:b[1]]))
		if err != nil {
			return eris.Wrapf(err, "postgis: COPY into %s.%s (batch %d-%d)", s.schema, table, b[0], b[1])
		}
		ld.Loaded += n
		log.Debug("batch loaded",
			zap.Int("batch_start", b[0]),
			zap.Int("batch_end", b[1]),
			zap.Int64("batch_rows", n),
		)
	}
	return nil
}
