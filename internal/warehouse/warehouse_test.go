package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/model"
)

func newMockWarehouse(t *testing.T) (*Warehouse, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return New(mock, "mobility"), mock
}

func TestNew_DefaultSchema(t *testing.T) {
	assert.Equal(t, "public", New(nil, "").Schema())
}

func TestListTables(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("mobility").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("buildings").AddRow("traffic"))

	tables, err := w.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"buildings", "traffic"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables_Error(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("mobility").
		WillReturnError(errors.New("permission denied"))

	_, err := w.ListTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse: list tables in mobility")
}

func TestTable_FeedsCleansing(t *testing.T) {
	w, mock := newMockWarehouse(t)
	ts := time.Date(2024, 5, 6, 21, 45, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "mobility"."traffic"`).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "occured_at", "latitude", "longitude"}).
			AddRow("u1", ts, 52.2297, 21.0122).
			AddRow("u2", ts, nil, 21.0122))

	table, err := w.Table(context.Background(), "traffic")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "occured_at", "latitude", "longitude"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2024-05-06 21:45:00", table.Rows[0][1])
	assert.Equal(t, "", table.Rows[1][2])

	pings, report, err := ingest.CleanPings(table)
	require.NoError(t, err)
	require.Len(t, pings, 1)
	assert.Equal(t, 21, pings[0].Hour())
	assert.Equal(t, 1, report.Missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAreas(t *testing.T) {
	w, mock := newMockWarehouse(t)

	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{21, 52}, {21.1, 52}, {21.1, 52.1}, {21, 52.1}, {21, 52}},
	})
	data, err := wkb.Marshal(poly, wkb.NDR)
	require.NoError(t, err)
	lat, lng := 52.05, 21.05

	mock.ExpectQuery(`ST_AsBinary\("geom"\) AS geometry FROM "mobility"."locations"`).
		WillReturnRows(pgxmock.NewRows([]string{"location", "lat", "lng", "geometry"}).
			AddRow("Ursynów", &lat, &lng, data))

	table, err := w.Areas(context.Background(), "locations", "geom")
	require.NoError(t, err)

	areas, _, err := ingest.CleanAreas(table)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Ursynów", areas[0].Name)
	assert.True(t, areas[0].Boundary.ContainsPoint(21.05, 52.05))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDumpAll(t *testing.T) {
	w, mock := newMockWarehouse(t)
	dir := t.TempDir()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("mobility").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("locations"))
	mock.ExpectQuery(`SELECT \* FROM "mobility"."locations"`).
		WillReturnRows(pgxmock.NewRows([]string{"location", "lat", "lng"}).
			AddRow("Bemowo", 52.25, 20.9).
			AddRow("Bielany", 52.29, 20.93))

	paths, err := w.DumpAll(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "locations.csv")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "location,lat,lng\nBemowo,52.25,20.9\nBielany,52.29,20.93\n", string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPings(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectCopyFrom(pgx.Identifier{"mobility", "traffic_cleaned"}, pingColumns).WillReturnResult(2)

	n, err := w.LoadPings(context.Background(), "traffic_cleaned", []model.Ping{
		{UserID: "u1", Timestamp: time.Now(), Lat: 52.1, Lng: 21.0},
		{UserID: "u2", Timestamp: time.Now(), Lat: 52.2, Lng: 21.1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatValue(t *testing.T) {
	f := 1.5
	var nilF *float64
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "", formatValue(nilF))
	assert.Equal(t, "1.5", formatValue(&f))
	assert.Equal(t, "0102", formatValue([]byte{1, 2}))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "2024-01-02 03:04:05.5", formatValue(time.Date(2024, 1, 2, 3, 4, 5, 500_000_000, time.UTC)))
}
