package ingest

import (
	"strconv"

	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/geometry"
	"github.com/sells-group/mobility-cli/internal/model"
)

// TimestampLayout is the layout used when writing cleaned ping tables.
const TimestampLayout = "2006-01-02 15:04:05"

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func shapeHex(s *geometry.Shape) string {
	if s == nil {
		return ""
	}
	h, err := s.WKBHex()
	if err != nil {
		return ""
	}
	return h
}

// PingsTable renders pings with canonical column names.
func PingsTable(pings []model.Ping) *fetcher.Table {
	t := &fetcher.Table{
		Header: []string{pingUserID[0], pingTimestamp[0], pingLat[0], pingLng[0]},
		Rows:   make([][]string, len(pings)),
	}
	for i, p := range pings {
		t.Rows[i] = []string{p.UserID, p.Timestamp.Format(TimestampLayout), formatFloat(p.Lat), formatFloat(p.Lng)}
	}
	return t
}

// AreasTable renders an area catalog with hex WKB boundaries.
func AreasTable(areas []model.Area) *fetcher.Table {
	t := &fetcher.Table{
		Header: []string{areaName[0], areaLat[0], areaLng[0], areaGeometry[0]},
		Rows:   make([][]string, len(areas)),
	}
	for i, a := range areas {
		t.Rows[i] = []string{a.Name, formatFloat(a.Lat), formatFloat(a.Lng), shapeHex(a.Boundary)}
	}
	return t
}

// PopulationTable renders population cells with one column per bucket.
func PopulationTable(cells []model.PopulationCell) *fetcher.Table {
	buckets := model.Buckets()
	header := append([]string{"LAT", "LNG"}, buckets...)
	header = append(header, "FEMALE", "MALE", "TOTAL")

	t := &fetcher.Table{Header: header, Rows: make([][]string, len(cells))}
	for i, c := range cells {
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(c.Lat), formatFloat(c.Lng))
		for _, b := range buckets {
			row = append(row, formatFloat(c.Counts[b]))
		}
		row = append(row, formatFloat(c.Female()), formatFloat(c.Male()), formatFloat(c.Total()))
		t.Rows[i] = row
	}
	return t
}

// BuildingsTable renders buildings with hex WKB footprints.
func BuildingsTable(buildings []model.Building) *fetcher.Table {
	t := &fetcher.Table{
		Header: []string{"LOKALNYID", "FUNOGOLNABUDYNKU_DESC", "LICZBAKONDYGNACJI", "AREA", "GEOMETRY"},
		Rows:   make([][]string, len(buildings)),
	}
	for i, b := range buildings {
		t.Rows[i] = []string{b.ID, b.Type, formatFloat(b.Floors), formatFloat(b.AreaSqm), shapeHex(b.Boundary)}
	}
	return t
}
