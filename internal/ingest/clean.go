package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/geometry"
	"github.com/sells-group/mobility-cli/internal/model"
)

// timestampLayouts are tried in order. Layouts without a zone yield naive
// wall-clock times in UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in ping exports.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts a dot or a single decimal comma.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// dedupe drops rows identical to an earlier row.
func dedupe(rows [][]string, report *CleanReport) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func anyBlank(row []string, idx ...int) bool {
	for _, i := range idx {
		if strings.TrimSpace(cell(row, i)) == "" {
			return true
		}
	}
	return false
}

func inRange(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// CleanPings converts a traffic table into pings, dropping duplicates, rows
// with missing keys, bad timestamps, out-of-range and zero coordinates.
func CleanPings(t *fetcher.Table) ([]model.Ping, CleanReport, error) {
	report := CleanReport{Entity: "pings", Rows: len(t.Rows)}
	idx, err := resolveColumns(t, "pings", pingUserID, pingTimestamp, pingLat, pingLng)
	if err != nil {
		return nil, report, err
	}
	cUser, cTS, cLat, cLng := idx[0], idx[1], idx[2], idx[3]

	rows := dedupe(t.Rows, &report)
	pings := make([]model.Ping, 0, len(rows))
	for _, row := range rows {
		if anyBlank(row, cUser, cTS, cLat, cLng) {
			report.Missing++
			continue
		}
		ts, ok := ParseTimestamp(cell(row, cTS))
		if !ok {
			report.BadTimestamp++
			continue
		}
		lat, okLat := parseNumber(cell(row, cLat))
		lng, okLng := parseNumber(cell(row, cLng))
		if !okLat || !okLng || !inRange(lat, lng) {
			report.BadCoordinate++
			continue
		}
		if lat == 0 || lng == 0 {
			report.ZeroCoordinate++
			continue
		}
		pings = append(pings, model.Ping{
			UserID:    strings.TrimSpace(cell(row, cUser)),
			Timestamp: ts,
			Lat:       lat,
			Lng:       lng,
		})
	}
	report.Kept = len(pings)
	return pings, report, nil
}

// CleanAreas converts a locations table into an area catalog. Names must be
// present and unique; the first occurrence wins. A missing or undecodable
// geometry keeps the area with a nil boundary (counted as BadGeometry) so it
// can still be used for nearest assignment. When the table has no lat/lng
// columns, or a row leaves them blank, the reference point is the center of
// the boundary envelope.
func CleanAreas(t *fetcher.Table) ([]model.Area, CleanReport, error) {
	report := CleanReport{Entity: "areas", Rows: len(t.Rows)}
	idx, err := resolveColumns(t, "areas", areaName)
	if err != nil {
		return nil, report, err
	}
	cName := idx[0]
	cLat, cLng, cGeom := lookup(t, areaLat), lookup(t, areaLng), lookup(t, areaGeometry)
	hasPoint := cLat >= 0 && cLng >= 0

	rows := dedupe(t.Rows, &report)
	names := make(map[string]struct{}, len(rows))
	areas := make([]model.Area, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, cName))
		if name == "" {
			report.Missing++
			continue
		}
		if _, dup := names[name]; dup {
			report.Duplicates++
			continue
		}

		shape := geometry.DecodeString(cell(row, cGeom))
		if shape == nil {
			report.BadGeometry++
		}

		var lat, lng float64
		switch {
		case hasPoint && !anyBlank(row, cLat, cLng):
			var okLat, okLng bool
			lat, okLat = parseNumber(cell(row, cLat))
			lng, okLng = parseNumber(cell(row, cLng))
			if !okLat || !okLng || !inRange(lat, lng) {
				report.BadCoordinate++
				continue
			}
			if lat == 0 || lng == 0 {
				report.ZeroCoordinate++
				continue
			}
		case shape != nil:
			minC, maxC := shape.Bounds()
			lng, lat = (minC[0]+maxC[0])/2, (minC[1]+maxC[1])/2
		default:
			report.Missing++
			continue
		}

		names[name] = struct{}{}
		areas = append(areas, model.Area{Name: name, Boundary: shape, Lat: lat, Lng: lng})
	}
	report.Kept = len(areas)
	return areas, report, nil
}

// CleanPopulation converts a population grid table into cells. Bucket columns
// absent from the header count as zero; a blank bucket value drops the row.
func CleanPopulation(t *fetcher.Table) ([]model.PopulationCell, CleanReport, error) {
	report := CleanReport{Entity: "population", Rows: len(t.Rows)}
	idx, err := resolveColumns(t, "population", cellLat, cellLng)
	if err != nil {
		return nil, report, err
	}
	cLat, cLng := idx[0], idx[1]

	buckets := model.Buckets()
	bucketIdx := make(map[string]int, len(buckets))
	for _, b := range buckets {
		if i := t.Column(b); i >= 0 {
			bucketIdx[b] = i
		}
	}
	if len(bucketIdx) == 0 {
		return nil, report, errNoBuckets
	}

	rows := dedupe(t.Rows, &report)
	cells := make([]model.PopulationCell, 0, len(rows))
rowLoop:
	for _, row := range rows {
		if anyBlank(row, cLat, cLng) {
			report.Missing++
			continue
		}
		lat, okLat := parseNumber(cell(row, cLat))
		lng, okLng := parseNumber(cell(row, cLng))
		if !okLat || !okLng || !inRange(lat, lng) {
			report.BadCoordinate++
			continue
		}

		counts := make(map[string]float64, len(buckets))
		for _, b := range buckets {
			i, ok := bucketIdx[b]
			if !ok {
				counts[b] = 0
				continue
			}
			raw := cell(row, i)
			if strings.TrimSpace(raw) == "" {
				report.Missing++
				continue rowLoop
			}
			v, ok := parseNumber(raw)
			if !ok {
				report.BadNumber++
				continue rowLoop
			}
			counts[b] = v
		}
		cells = append(cells, model.PopulationCell{Lat: lat, Lng: lng, Counts: counts})
	}
	report.Kept = len(cells)
	return cells, report, nil
}

// CleanBuildings converts a building register table. Non-numeric floor
// counts or areas drop the row; undecodable geometry is kept as nil and
// skipped by the building analysis.
func CleanBuildings(t *fetcher.Table) ([]model.Building, CleanReport, error) {
	report := CleanReport{Entity: "buildings", Rows: len(t.Rows)}
	idx, err := resolveColumns(t, "buildings", buildingID, buildingType, buildingFloors, buildingArea, buildingGeometry)
	if err != nil {
		return nil, report, err
	}
	cID, cType, cFloors, cArea, cGeom := idx[0], idx[1], idx[2], idx[3], idx[4]

	rows := dedupe(t.Rows, &report)
	out := make([]model.Building, 0, len(rows))
	for _, row := range rows {
		if anyBlank(row, cID, cType, cFloors, cArea, cGeom) {
			report.Missing++
			continue
		}
		floors, okF := parseNumber(cell(row, cFloors))
		area, okA := parseNumber(cell(row, cArea))
		if !okF || !okA {
			report.BadNumber++
			continue
		}
		shape := geometry.DecodeString(cell(row, cGeom))
		if shape == nil {
			report.BadGeometry++
		}
		out = append(out, model.Building{
			ID:       strings.TrimSpace(cell(row, cID)),
			Boundary: shape,
			Type:     strings.TrimSpace(cell(row, cType)),
			Floors:   floors,
			AreaSqm:  area,
		})
	}
	report.Kept = len(out)
	return out, report, nil
}
