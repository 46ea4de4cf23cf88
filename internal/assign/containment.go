// Package assign maps pings to areas, either by polygon containment or by
// nearest reference point.
package assign

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/model"
)

// ErrNoAreas is returned when no area catalog was provided at all.
var ErrNoAreas = eris.New("assign: no areas provided")

// Options configures containment assignment.
type Options struct {
	// Index narrows candidate areas with an R-tree over area envelopes before
	// the exact point-in-polygon test. Results are identical either way.
	Index bool
}

// Membership is the area × ping containment table built for one analysis call.
// Columns follow the catalog order of the areas that have a valid boundary.
type Membership struct {
	Areas  []model.Area
	inside [][]bool
	pings  int
}

// Containment tests every ping against every area boundary. Areas without a
// boundary are left out of the table.
func Containment(pings []model.Ping, areas []model.Area, opts Options) (*Membership, error) {
	if len(areas) == 0 {
		return nil, ErrNoAreas
	}

	m := &Membership{pings: len(pings)}
	for _, a := range areas {
		if !a.HasBoundary() {
			zap.L().Debug("assign: skipping area without boundary", zap.String("area", a.Name))
			continue
		}
		m.Areas = append(m.Areas, a)
	}
	m.inside = make([][]bool, len(m.Areas))
	for i := range m.inside {
		m.inside[i] = make([]bool, len(pings))
	}

	if opts.Index && len(m.Areas) > 0 {
		idx := newAreaIndex(m.Areas)
		for p := range pings {
			lng, lat := pings[p].Lng, pings[p].Lat
			idx.search(lng, lat, func(a int) {
				if m.Areas[a].Boundary.ContainsPoint(lng, lat) {
					m.inside[a][p] = true
				}
			})
		}
		return m, nil
	}

	for a := range m.Areas {
		shape := m.Areas[a].Boundary
		for p := range pings {
			m.inside[a][p] = shape.ContainsPoint(pings[p].Lng, pings[p].Lat)
		}
	}
	return m, nil
}

// NumPings returns the number of pings the table was built over.
func (m *Membership) NumPings() int {
	return m.pings
}

// Names returns the area names in column order.
func (m *Membership) Names() []string {
	names := make([]string, len(m.Areas))
	for i, a := range m.Areas {
		names[i] = a.Name
	}
	return names
}

// Index returns the column of the named area.
func (m *Membership) Index(name string) (int, bool) {
	for i, a := range m.Areas {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Inside reports whether ping p lies in area column a.
func (m *Membership) Inside(a, p int) bool {
	return m.inside[a][p]
}

// Column returns a copy of the boolean column for the named area.
func (m *Membership) Column(name string) ([]bool, bool) {
	i, ok := m.Index(name)
	if !ok {
		return nil, false
	}
	return append([]bool(nil), m.inside[i]...), true
}

// PingsIn returns the indexes of the pings inside area column a, in input order.
func (m *Membership) PingsIn(a int) []int {
	var idx []int
	for p, in := range m.inside[a] {
		if in {
			idx = append(idx, p)
		}
	}
	return idx
}

// Check verifies that the table was built over the given ping set.
func (m *Membership) Check(pings []model.Ping) error {
	if m == nil {
		return eris.New("assign: nil membership")
	}
	if m.pings != len(pings) {
		return eris.Errorf("assign: membership covers %d pings, got %d", m.pings, len(pings))
	}
	return nil
}
