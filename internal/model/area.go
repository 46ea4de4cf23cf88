package model

import "github.com/sells-group/mobility-cli/internal/geometry"

// Area is a named region with a polygon boundary and a reference point.
// Boundary is nil when the source geometry could not be decoded; such areas are
// skipped by containment analyses but still take part in nearest assignment.
type Area struct {
	Name     string          `json:"location"`
	Boundary *geometry.Shape `json:"-"`
	Lat      float64         `json:"lat"`
	Lng      float64         `json:"lng"`
}

// HasBoundary reports whether the area can be used for containment tests.
func (a Area) HasBoundary() bool {
	return a.Boundary != nil
}

// FindArea returns the first area with the given name.
func FindArea(areas []Area, name string) (Area, bool) {
	for _, a := range areas {
		if a.Name == name {
			return a, true
		}
	}
	return Area{}, false
}
