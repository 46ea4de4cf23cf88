// Package demographic aggregates the resident population of an area by age
// band and gender.
package demographic

import (
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/model"
)

// Summary is the population structure of one area. Percentages are only set
// when Status is StatusOK.
type Summary struct {
	Status model.Status `json:"status"`
	Area   string       `json:"location"`
	Lat    float64      `json:"lat"`
	Lng    float64      `json:"lng"`
	Cells  int          `json:"cells"`

	Totals map[string]float64 `json:"totals"`
	Female float64            `json:"female"`
	Male   float64            `json:"male"`
	Total  float64            `json:"total"`

	FemalePct float64            `json:"female_percentage"`
	MalePct   float64            `json:"male_percentage"`
	BucketPct map[string]float64 `json:"bucket_percentages,omitempty"`
}

// Band is one row of the population pyramid.
type Band struct {
	Label     string  `json:"age_band"`
	Female    float64 `json:"female"`
	Male      float64 `json:"male"`
	FemalePct float64 `json:"female_percentage"`
	MalePct   float64 `json:"male_percentage"`
}

// Summarize sums the population cells whose reference point lies inside the
// named area.
func Summarize(cells []model.PopulationCell, areas []model.Area, name string) Summary {
	s := Summary{Status: model.StatusOK, Area: name, Totals: make(map[string]float64)}

	area, ok := model.FindArea(areas, name)
	if !ok || !area.HasBoundary() {
		zap.L().Debug("demographic: location not found", zap.String("area", name))
		s.Status = model.StatusLocationNotFound
		return s
	}
	s.Lat, s.Lng = area.Lat, area.Lng

	buckets := model.Buckets()
	for _, c := range cells {
		if !area.Boundary.ContainsPoint(c.Lng, c.Lat) {
			continue
		}
		s.Cells++
		for _, b := range buckets {
			s.Totals[b] += c.Counts[b]
		}
	}

	for _, band := range model.AgeBands {
		s.Female += s.Totals[model.GenderFemale+band]
		s.Male += s.Totals[model.GenderMale+band]
	}
	s.Total = s.Female + s.Male

	if s.Total <= 0 {
		s.Status = model.StatusNoData
		return s
	}

	s.FemalePct = s.Female / s.Total * 100
	s.MalePct = s.Male / s.Total * 100
	s.BucketPct = make(map[string]float64, len(buckets))
	for _, b := range buckets {
		s.BucketPct[b] = s.Totals[b] / s.Total * 100
	}
	return s
}

// Pyramid returns one row per age band, youngest first.
func (s Summary) Pyramid() []Band {
	out := make([]Band, len(model.AgeBands))
	for i, band := range model.AgeBands {
		f, m := model.GenderFemale+band, model.GenderMale+band
		out[i] = Band{
			Label:     model.BandLabel(band),
			Female:    s.Totals[f],
			Male:      s.Totals[m],
			FemalePct: s.BucketPct[f],
			MalePct:   s.BucketPct[m],
		}
	}
	return out
}
