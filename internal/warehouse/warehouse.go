// Package warehouse extracts mobility tables from a Postgres/PostGIS
// warehouse and bulk-loads cleansed pings back into it.
package warehouse

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/db"
	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/model"
)

// Warehouse reads tables from one schema.
type Warehouse struct {
	pool   db.Pool
	schema string
}

// New returns a Warehouse over pool. An empty schema means "public".
func New(pool db.Pool, schema string) *Warehouse {
	if schema == "" {
		schema = "public"
	}
	return &Warehouse{pool: pool, schema: schema}
}

// Schema returns the schema the warehouse reads from.
func (w *Warehouse) Schema() string {
	return w.schema
}

// ListTables returns the base tables of the schema in name order.
func (w *Warehouse) ListTables(ctx context.Context) ([]string, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
		w.schema,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: list tables in %s", w.schema)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan table name")
		}
		tables = append(tables, name)
	}
	return tables, eris.Wrap(rows.Err(), "warehouse: list tables iterate")
}

// Table reads every row of a table. Values are rendered as text: binary
// values (PostGIS geometry fetched with ST_AsBinary) as hex, timestamps
// without a zone.
func (w *Warehouse) Table(ctx context.Context, table string) (*fetcher.Table, error) {
	ident := pgx.Identifier{w.schema, table}
	rows, err := w.pool.Query(ctx, "SELECT * FROM "+ident.Sanitize())
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: query %s", table)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	out := &fetcher.Table{Header: make([]string, len(fds))}
	for i, fd := range fds {
		out.Header[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "warehouse: read row of %s", table)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "warehouse: iterate %s", table)
	}

	zap.L().Debug("warehouse: read table", zap.String("table", table), zap.Int("rows", len(out.Rows)))
	return out, nil
}

// Areas reads an area table with the boundary converted to WKB in the query,
// so the result does not depend on the driver's handling of geometry types.
func (w *Warehouse) Areas(ctx context.Context, table, geomColumn string) (*fetcher.Table, error) {
	ident := pgx.Identifier{w.schema, table}
	col := pgx.Identifier{geomColumn}.Sanitize()
	query := fmt.Sprintf(
		"SELECT location, ST_Y(ST_PointOnSurface(%[1]s)) AS lat, ST_X(ST_PointOnSurface(%[1]s)) AS lng, ST_AsBinary(%[1]s) AS geometry FROM %[2]s",
		col, ident.Sanitize(),
	)
	rows, err := w.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: query areas %s", table)
	}
	defer rows.Close()

	out := &fetcher.Table{Header: []string{"location", "lat", "lng", "geometry"}}
	for rows.Next() {
		var (
			name     string
			lat, lng *float64
			wkb      []byte
		)
		if err := rows.Scan(&name, &lat, &lng, &wkb); err != nil {
			return nil, eris.Wrapf(err, "warehouse: scan area of %s", table)
		}
		out.Rows = append(out.Rows, []string{name, formatValue(lat), formatValue(lng), formatValue(wkb)})
	}
	return out, eris.Wrapf(rows.Err(), "warehouse: iterate areas %s", table)
}

// DumpCSV writes a table to dir/<table>.csv and returns the path.
func (w *Warehouse) DumpCSV(ctx context.Context, table, dir string) (string, int, error) {
	t, err := w.Table(ctx, table)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, table+".csv")
	if err := fetcher.WriteCSV(path, t); err != nil {
		return "", 0, err
	}
	zap.L().Info("warehouse: saved table", zap.String("table", table), zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return path, len(t.Rows), nil
}

// DumpAll writes every table of the schema to dir. Tables are dumped in name
// order and the first failure stops the dump.
func (w *Warehouse) DumpAll(ctx context.Context, dir string) ([]string, error) {
	tables, err := w.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path, _, err := w.DumpCSV(ctx, t, dir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

var pingColumns = []string{"user_id", "occured_at", "latitude", "longitude"}

// LoadPings bulk-inserts pings into table using COPY.
func (w *Warehouse) LoadPings(ctx context.Context, table string, pings []model.Ping) (int64, error) {
	rows := make([][]any, len(pings))
	for i, p := range pings {
		rows[i] = []any{p.UserID, p.Timestamp, p.Lat, p.Lng}
	}
	n, err := db.CopyFrom(ctx, w.pool, w.schema+"."+table, pingColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: load pings")
	}
	zap.L().Info("warehouse: loaded pings", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return hex.EncodeToString(val)
	case *float64:
		if val == nil {
			return ""
		}
		return strconv.FormatFloat(*val, 'f', -1, 64)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format("2006-01-02 15:04:05.999999")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
