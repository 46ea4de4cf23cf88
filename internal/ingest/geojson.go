package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/fetcher"
)

// ReadGeoJSON reads a FeatureCollection into a table. Feature properties
// become columns (sorted by name) and the geometry is appended as a hex WKB
// "geometry" column.
func ReadGeoJSON(path string) (*fetcher.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read geojson %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse geojson %s", path)
	}

	keys := map[string]struct{}{}
	for _, f := range fc.Features {
		for k := range f.Properties {
			if k == "geometry" {
				continue
			}
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys)+1)
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)
	header = append(header, "geometry")

	t := &fetcher.Table{Header: header, Rows: make([][]string, 0, len(fc.Features))}
	var skipped int
	for _, f := range fc.Features {
		row := make([]string, len(header))
		for i, k := range header[:len(header)-1] {
			row[i] = formatProperty(f.Properties[k])
		}
		if f.Geometry != nil {
			h, err := wkbhex.Encode(f.Geometry, wkb.NDR)
			if err != nil {
				skipped++
			} else {
				row[len(row)-1] = h
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if skipped > 0 {
		zap.L().Debug("ingest: geojson features without encodable geometry", zap.String("path", path), zap.Int("features", skipped))
	}
	return t, nil
}

func formatProperty(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
