// Package ingest maps raw tables onto the analysis entities, cleanses them and
// reads area catalogs from tabular, GeoJSON and shapefile sources.
package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/mobility-cli/internal/fetcher"
)

// Column aliases per entity field, matched case-insensitively. The first
// alias is the canonical name used when writing cleaned tables.
var (
	pingUserID    = []string{"user_id", "userid", "device_id"}
	pingTimestamp = []string{"occured_at", "occurred_at", "timestamp", "ts"}
	pingLat       = []string{"latitude", "lat"}
	pingLng       = []string{"longitude", "lng", "lon"}

	areaName     = []string{"location", "name", "area"}
	areaLat      = []string{"lat", "latitude"}
	areaLng      = []string{"lng", "longitude", "lon"}
	areaGeometry = []string{"geometry", "geom", "wkb", "wkt"}

	cellLat = []string{"lat", "latitude"}
	cellLng = []string{"lng", "longitude", "lon"}

	buildingID       = []string{"lokalnyid", "id", "building_id"}
	buildingType     = []string{"funogolnabudynku_desc", "building_type", "type"}
	buildingFloors   = []string{"liczbakondygnacji", "floor_count", "floors"}
	buildingArea     = []string{"area", "area_sqm"}
	buildingGeometry = []string{"geometry", "geom", "wkb", "wkt"}
)

// lookup returns the index of the first alias present in t, or -1.
func lookup(t *fetcher.Table, aliases []string) int {
	for _, a := range aliases {
		if i := t.Column(a); i >= 0 {
			return i
		}
	}
	return -1
}

// resolveColumns resolves every alias group or reports the first missing one.
func resolveColumns(t *fetcher.Table, entity string, groups ...[]string) ([]int, error) {
	idx := make([]int, len(groups))
	for i, g := range groups {
		idx[i] = lookup(t, g)
		if idx[i] < 0 {
			return nil, eris.Errorf("ingest: %s table has no %q column", entity, g[0])
		}
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

var errNoBuckets = eris.New("ingest: population table has no FEMALE/MALE bucket columns")
