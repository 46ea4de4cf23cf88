// Package hourly computes the time-of-day structure of visits per area.
package hourly

import (
	"sort"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/model"
)

// HourShare is the percentage of an area's pings observed in one hour of day.
type HourShare struct {
	Hour    int     `json:"hour"`
	Pings   int     `json:"pings"`
	Percent float64 `json:"percentage"`
}

// Area is the sparse hourly distribution of one area. Hours without pings are
// absent.
type Area struct {
	Name  string      `json:"location"`
	Pings int         `json:"pings"`
	Hours []HourShare `json:"hours"`
}

// Dense returns a 24 slot table with zero fill.
func (a Area) Dense() [24]float64 {
	var out [24]float64
	for _, h := range a.Hours {
		out[h.Hour] = h.Percent
	}
	return out
}

// Distribution holds one entry per labelled area in catalog order. Areas with
// no pings are omitted.
type Distribution struct {
	Status model.Status `json:"status"`
	Areas  []Area       `json:"areas"`
}

// DenseRow is an area's 24 slot table.
type DenseRow struct {
	Name    string
	Percent [24]float64
}

// Dense expands every area to a 24 slot table.
func (d Distribution) Dense() []DenseRow {
	out := make([]DenseRow, len(d.Areas))
	for i, a := range d.Areas {
		out[i] = DenseRow{Name: a.Name, Percent: a.Dense()}
	}
	return out
}

// Structure buckets nearest-labelled pings by the hour of their naive
// timestamp and converts counts to a percentage of the area's pings.
func Structure(pings []model.Ping, labels assign.Labels) (Distribution, error) {
	if err := labels.Check(pings); err != nil {
		return Distribution{}, err
	}

	counts := make([][24]int, len(labels.Areas))
	totals := make([]int, len(labels.Areas))
	for p := range pings {
		a := labels.Of[p]
		counts[a][pings[p].Hour()]++
		totals[a]++
	}

	d := Distribution{Status: model.StatusOK}
	for a, area := range labels.Areas {
		if totals[a] == 0 {
			continue
		}
		row := Area{Name: area.Name, Pings: totals[a]}
		for h, n := range counts[a] {
			if n == 0 {
				continue
			}
			row.Hours = append(row.Hours, HourShare{
				Hour:    h,
				Pings:   n,
				Percent: float64(n) / float64(totals[a]) * 100,
			})
		}
		sort.Slice(row.Hours, func(i, j int) bool { return row.Hours[i].Hour < row.Hours[j].Hour })
		d.Areas = append(d.Areas, row)
	}
	if len(d.Areas) == 0 {
		d.Status = model.StatusNoData
	}
	return d, nil
}
