package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shapecodec/internal/attrs"
	"github.com/sells-group/shapecodec/internal/shp"
)

func pointSource(n int) Source {
	features := make([]attrs.Feature, n)
	for i := range features {
		features[i] = attrs.Feature{
			Number:     i + 1,
			Geometry:   shp.Point{Coordinate: shp.XY(float64(i), float64(i))},
			Attributes: map[string]string{"ID": string(rune('a' + i))},
		}
	}
	return Source{Path: "in.shp", ShapeType: shp.TypePoint, Features: features}
}

func TestPostGIS_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS shapecodec_loads`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	s := NewPostGISWithPool(mock, "", 0)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Load_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO shapecodec_loads`).
		WithArgs(pgxmock.AnyArg(), "parcels", "in.shp", "Point", 3, "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"public", "parcels"}, Columns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"public", "parcels"}, Columns).WillReturnResult(1)
	mock.ExpectExec(`UPDATE shapecodec_loads`).
		WithArgs(int64(3), 0, "complete", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostGISWithPool(mock, "", 2)
	ld, err := s.Load(context.Background(), "parcels", pointSource(3))
	require.NoError(t, err)

	assert.Equal(t, LoadComplete, ld.Status)
	assert.Equal(t, int64(3), ld.Loaded)
	assert.Equal(t, 3, ld.Records)
	assert.NotEmpty(t, ld.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Load_CopyFailureMarksLoadFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO shapecodec_loads`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"tiger", "roads"}, Columns).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec(`UPDATE shapecodec_loads`).
		WithArgs(int64(0), 0, "failed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostGISWithPool(mock, "tiger", 10)
	ld, err := s.Load(context.Background(), "roads", pointSource(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, ld)
	assert.Equal(t, LoadFailed, ld.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Load_LedgerInsertFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO shapecodec_loads`).
		WillReturnError(errors.New("relation does not exist"))

	s := NewPostGISWithPool(mock, "", 0)
	ld, err := s.Load(context.Background(), "parcels", pointSource(1))
	require.Error(t, err)
	assert.Nil(t, ld)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Load_RequiresTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostGISWithPool(mock, "", 0).Load(context.Background(), "", pointSource(1))
	require.Error(t, err)
}

func TestFeatureRows(t *testing.T) {
	src := Source{
		ShapeType: shp.TypePoint,
		Features: []attrs.Feature{
			{Number: 1, Geometry: shp.Point{Coordinate: shp.XY(1, 2)}, Attributes: map[string]string{"NAME": "x"}},
			{Number: 2, Geometry: shp.Null{}},
		},
	}
	rows, skipped, err := featureRows("load-1", src)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "load-1", rows[0][0])
	assert.Equal(t, 1, rows[0][1])
	assert.JSONEq(t, `{"NAME":"x"}`, rows[0][2].(string))
	assert.NotEmpty(t, rows[0][3])

	assert.Nil(t, rows[1][2])
	assert.Nil(t, rows[1][3])
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, batches(5, 2))
	assert.Empty(t, batches(0, 2))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 0))
}
