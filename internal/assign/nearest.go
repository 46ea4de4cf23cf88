package assign

import (
	"strings"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mobility-cli/internal/model"
)

// Metric selects the distance used by nearest assignment.
type Metric int

const (
	// GreatCircle measures angular distance on the sphere.
	GreatCircle Metric = iota
	// Planar measures squared distance in raw lng/lat degrees.
	Planar
)

// String implements fmt.Stringer.
func (m Metric) String() string {
	switch m {
	case Planar:
		return "planar"
	default:
		return "great_circle"
	}
}

// ParseMetric parses a config value. An empty value selects GreatCircle.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "great_circle", "greatcircle", "haversine":
		return GreatCircle, nil
	case "planar", "euclidean":
		return Planar, nil
	default:
		return GreatCircle, eris.Errorf("assign: unknown metric %q", s)
	}
}

// Labels holds exactly one area per ping.
type Labels struct {
	Areas []model.Area
	// Of[i] is the index into Areas of the area nearest to ping i.
	Of []int
}

// Name returns the area name assigned to ping i.
func (l Labels) Name(i int) string {
	return l.Areas[l.Of[i]].Name
}

// Nearest labels each ping with the area whose reference point is closest.
// Ties go to the area that appears first in the catalog.
func Nearest(pings []model.Ping, areas []model.Area, metric Metric) (Labels, error) {
	if len(areas) == 0 {
		return Labels{}, ErrNoAreas
	}

	labels := Labels{
		Areas: append([]model.Area(nil), areas...),
		Of:    make([]int, len(pings)),
	}

	var refs []s2.LatLng
	if metric == GreatCircle {
		refs = make([]s2.LatLng, len(areas))
		for i, a := range areas {
			refs[i] = s2.LatLngFromDegrees(a.Lat, a.Lng)
		}
	}

	for p := range pings {
		best, bestDist := 0, 0.0
		var pt s2.LatLng
		if metric == GreatCircle {
			pt = s2.LatLngFromDegrees(pings[p].Lat, pings[p].Lng)
		}
		for a := range areas {
			var d float64
			if metric == GreatCircle {
				d = pt.Distance(refs[a]).Radians()
			} else {
				dx := pings[p].Lng - areas[a].Lng
				dy := pings[p].Lat - areas[a].Lat
				d = dx*dx + dy*dy
			}
			if a == 0 || d < bestDist {
				best, bestDist = a, d
			}
		}
		labels.Of[p] = best
	}
	return labels, nil
}

// Check verifies that the labels were built over the given ping set.
func (l Labels) Check(pings []model.Ping) error {
	if len(l.Of) != len(pings) {
		return eris.Errorf("assign: labels cover %d pings, got %d", len(l.Of), len(pings))
	}
	return nil
}
