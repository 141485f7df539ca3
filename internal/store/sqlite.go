package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite loads features into a SQLite database. Geometries are stored as
// EWKB blobs.
type SQLite struct {
	db        *sql.DB
	batchSize int
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string, batchSize int) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SQLite{db: db, batchSize: batchSize}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS shapecodec_loads (
	id          TEXT PRIMARY KEY,
	table_name  TEXT NOT NULL,
	source      TEXT NOT NULL,
	shape_type  TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	loaded      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_shapecodec_loads_table ON shapecodec_loads(table_name);
`

// Migrate creates the load ledger.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Load inserts src into table, creating it when needed, and records the
// load in the ledger.
func (s *SQLite) Load(ctx context.Context, table string, src Source) (*Load, error) {
	if table == "" {
		return nil, eris.New("sqlite: table name is required")
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
		zap.String("component", "store.sqlite"),
		zap.String("load_id", ld.ID),
		zap.String("table", table),
	)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO shapecodec_loads (id, table_name, source, shape_type, records, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ld.ID, table, src.Path, src.ShapeType.String(), ld.Records, string(LoadRunning), ld.StartedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert load")
	}

	loadErr := s.insertFeatures(ctx, table, src, ld, log)

	ld.FinishedAt = time.Now().UTC()
	ld.Status = LoadComplete
	if loadErr != nil {
		ld.Status = LoadFailed
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE shapecodec_loads SET loaded = ?, skipped = ?, status = ?, finished_at = ? WHERE id = ?`,
		ld.Loaded, ld.Skipped, string(ld.Status), ld.FinishedAt, ld.ID,
	); err != nil && loadErr == nil {
		loadErr = eris.Wrapf(err, "sqlite: finish load %s", ld.ID)
	}
	if loadErr != nil {
		return ld, loadErr
	}

	log.Info("load complete", zap.Int64("loaded", ld.Loaded), zap.Int("skipped", ld.Skipped))
	return ld, nil
}

func (s *SQLite) insertFeatures(ctx context.Context, table string, src Source, ld *Load, log *zap.Logger) error {
	ident := quoteIdent(table)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	load_id TEXT NOT NULL,
	record  INTEGER NOT NULL,
	attrs   TEXT,
	geom    BLOB
)`, ident)); err != nil {
		return eris.Wrapf(err, "sqlite: create table %s", table)
	}

	rows, skipped, err := featureRows(ld.ID, src)
	if err != nil {
		return err
	}
	ld.Skipped = skipped

	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?)`, ident, strings.Join(Columns, ", "))
	for _, b := range batches(len(rows), s.batchSize) {
		n, err := s.insertBatch(ctx, insert, rows[b[0]:b[1]])
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s (batch %d-%d)", table, b[0], b[1])
		}
		ld.Loaded += n
		log.Debug("batch loaded",
			zap.Int("batch_start", b[0]),
			zap.Int("batch_end", b[1]),
		)
	}
	return nil
}

func (s *SQLite) insertBatch(ctx context.Context, insert string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record %v", row[1])
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return int64(len(rows)), nil
}

// Loads returns the ledger entries for table, newest first.
func (s *SQLite) Loads(ctx context.Context, table string) ([]Load, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_name, source, records, loaded, skipped, status FROM shapecodec_loads WHERE table_name = ? ORDER BY started_at DESC`,
		table,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list loads")
	}
	defer rows.Close() //nolint:errcheck

	var out []Load
	for rows.Next() {
		var ld Load
		var status string
		if err := rows.Scan(&ld.ID, &ld.Table, &ld.Source, &ld.Records, &ld.Loaded, &ld.Skipped, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan load")
		}
		ld.Status = LoadStatus(status)
		out = append(out, ld)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list loads")
}
