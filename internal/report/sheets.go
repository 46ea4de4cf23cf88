package report

import (
	"strconv"

	"github.com/sells-group/mobility-cli/internal/buildings"
	"github.com/sells-group/mobility-cli/internal/covisit"
	"github.com/sells-group/mobility-cli/internal/demographic"
	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/hourly"
	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/model"
	"github.com/sells-group/mobility-cli/internal/repeat"
	"github.com/sells-group/mobility-cli/internal/residence"
)

// Sheet is one named output table.
type Sheet struct {
	Name  string
	Table *fetcher.Table
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func pct(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// CovisitSheet renders the co-visitation matrix with area names on both axes.
func CovisitSheet(m covisit.Matrix) Sheet {
	header := append([]string{"location"}, m.Areas...)
	t := &fetcher.Table{Header: header, Rows: make([][]string, len(m.Areas))}
	for i, a := range m.Areas {
		row := make([]string, 0, len(header))
		row = append(row, a)
		for _, v := range m.Cells[i] {
			row = append(row, itoa(v))
		}
		t.Rows[i] = row
	}
	return Sheet{Name: "covisitation", Table: t}
}

// RepeatSheets renders the repeat summary, frequency table and visit detail.
func RepeatSheets(r repeat.Result) []Sheet {
	summary := &fetcher.Table{Header: []string{"location", "users"}}
	for _, s := range r.Summary {
		summary.Rows = append(summary.Rows, []string{s.Area, itoa(s.Users)})
	}

	freq := &fetcher.Table{Header: []string{"location", "visit_count", "users", "percentage"}}
	for _, f := range r.Frequencies {
		freq.Rows = append(freq.Rows, []string{f.Area, itoa(f.Repeats), itoa(f.Users), pct(f.Percent)})
	}

	visits := &fetcher.Table{Header: []string{"location", "user_id", "occured_at", "previous_visit", "time_diff_days"}}
	for _, v := range r.Visits {
		visits.Rows = append(visits.Rows, []string{
			v.Area, v.UserID,
			v.Timestamp.Format(ingest.TimestampLayout),
			v.Previous.Format(ingest.TimestampLayout),
			itoa(v.GapDays),
		})
	}

	return []Sheet{
		{Name: "repeat_summary", Table: summary},
		{Name: "repeat_frequency", Table: freq},
		{Name: "repeat_visits", Table: visits},
	}
}

// HourlySheet renders the dense 24 hour distribution, one row per area.
func HourlySheet(d hourly.Distribution) Sheet {
	header := make([]string, 0, 25)
	header = append(header, "location")
	for h := range 24 {
		header = append(header, itoa(h))
	}
	t := &fetcher.Table{Header: header}
	for _, row := range d.Dense() {
		out := make([]string, 0, 25)
		out = append(out, row.Name)
		for _, v := range row.Percent {
			out = append(out, pct(v))
		}
		t.Rows = append(t.Rows, out)
	}
	return Sheet{Name: "hourly", Table: t}
}

// DemographicSheet renders an area's age pyramid. Areas without data yield
// a single status row.
func DemographicSheet(s demographic.Summary) Sheet {
	t := &fetcher.Table{Header: []string{"age_band", "female", "male", "female_percentage", "male_percentage"}}
	name := "demographic_" + Slug(s.Area)
	if s.Status != model.StatusOK {
		t.Rows = append(t.Rows, []string{s.Status.Message(), "", "", "", ""})
		return Sheet{Name: name, Table: t}
	}
	for _, b := range s.Pyramid() {
		t.Rows = append(t.Rows, []string{b.Label, ftoa(b.Female), ftoa(b.Male), pct(b.FemalePct), pct(b.MalePct)})
	}
	t.Rows = append(t.Rows, []string{"total", ftoa(s.Female), ftoa(s.Male), pct(s.FemalePct), pct(s.MalePct)})
	return Sheet{Name: name, Table: t}
}

// BuildingsSheets renders the per-area building overview and the type counts.
func BuildingsSheets(summaries []buildings.Summary) []Sheet {
	overview := &fetcher.Table{Header: []string{"location", "status", "buildings", "mean_floors", "mean_area_sqm"}}
	types := &fetcher.Table{Header: []string{"location", "building_type", "label", "count"}}
	for _, s := range summaries {
		status := s.Status.Message()
		if s.Error != "" {
			status += ": " + s.Error
		}
		overview.Rows = append(overview.Rows, []string{s.Area, status, itoa(s.Buildings), ftoa(s.MeanFloors), ftoa(s.MeanAreaSqm)})
		for _, tc := range s.Types {
			types.Rows = append(types.Rows, []string{s.Area, tc.Type, buildings.TypeLabel(tc.Type), itoa(tc.Count)})
		}
	}
	return []Sheet{
		{Name: "buildings", Table: overview},
		{Name: "building_types", Table: types},
	}
}

// ResidenceSheet renders per-user estimates under the given name, e.g.
// "home" or "work".
func ResidenceSheet(name string, r residence.Result) Sheet {
	t := &fetcher.Table{Header: []string{"user_id", "latitude", "longitude", "pings"}}
	for _, c := range r.Estimates {
		t.Rows = append(t.Rows, []string{c.UserID, ftoa(c.Lat), ftoa(c.Lng), itoa(c.Pings)})
	}
	return Sheet{Name: name, Table: t}
}

// CleanSheet renders cleansing reports, one row per entity.
func CleanSheet(reports []ingest.CleanReport) Sheet {
	t := &fetcher.Table{Header: []string{
		"entity", "rows", "kept", "duplicates", "missing", "bad_timestamp",
		"bad_coordinate", "zero_coordinate", "bad_number", "bad_geometry",
	}}
	for _, r := range reports {
		t.Rows = append(t.Rows, []string{
			r.Entity, itoa(r.Rows), itoa(r.Kept), itoa(r.Duplicates), itoa(r.Missing), itoa(r.BadTimestamp),
			itoa(r.BadCoordinate), itoa(r.ZeroCoordinate), itoa(r.BadNumber), itoa(r.BadGeometry),
		})
	}
	return Sheet{Name: "cleansing", Table: t}
}
