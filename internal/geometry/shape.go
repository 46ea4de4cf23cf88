package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
	"github.com/twpayne/go-geom/xy/orientation"
)

// Shape is a validated polygonal boundary (one or more polygons, lng/lat
// order). Shapes are immutable once decoded and safe for concurrent use.
type Shape struct {
	g     geom.T
	polys []*geom.Polygon
	min   [2]float64
	max   [2]float64
}

func newShape(g geom.T, polys []*geom.Polygon) *Shape {
	s := &Shape{g: g, polys: polys}
	first := true
	for _, p := range polys {
		stride := p.Layout().Stride()
		flat := p.LinearRing(0).FlatCoords()
		for i := 0; i < len(flat); i += stride {
			x, y := flat[i], flat[i+1]
			if first {
				s.min = [2]float64{x, y}
				s.max = [2]float64{x, y}
				first = false
				continue
			}
			s.min[0] = min(s.min[0], x)
			s.min[1] = min(s.min[1], y)
			s.max[0] = max(s.max[0], x)
			s.max[1] = max(s.max[1], y)
		}
	}
	return s
}

// NumPolygons returns the number of polygon parts.
func (s *Shape) NumPolygons() int {
	return len(s.polys)
}

// Bounds returns the lng/lat envelope as (min, max) corners.
func (s *Shape) Bounds() (minCorner, maxCorner [2]float64) {
	return s.min, s.max
}

// WKBHex encodes the shape as little-endian hex WKB.
func (s *Shape) WKBHex() (string, error) {
	out, err := wkbhex.Encode(s.g, wkb.NDR)
	if err != nil {
		return "", eris.Wrap(err, "geometry: encode hex wkb")
	}
	return out, nil
}

// ContainsPoint reports whether (lng, lat) lies strictly inside the shape.
// Points on a shell or hole boundary are outside, matching "point within
// polygon" semantics.
func (s *Shape) ContainsPoint(lng, lat float64) bool {
	if s == nil || !s.envelopeHas(lng, lat) {
		return false
	}
	c := geom.Coord{lng, lat}
	for _, p := range s.polys {
		if locate(p, c) == location.Interior {
			return true
		}
	}
	return false
}

// Intersects reports whether the two shapes share at least one point.
// Touching boundaries count as intersecting.
func (s *Shape) Intersects(o *Shape) bool {
	if s == nil || o == nil {
		return false
	}
	if s.min[0] > o.max[0] || o.min[0] > s.max[0] || s.min[1] > o.max[1] || o.min[1] > s.max[1] {
		return false
	}
	for _, a := range s.polys {
		for _, b := range o.polys {
			if polygonsIntersect(a, b) {
				return true
			}
		}
	}
	return false
}

func (s *Shape) envelopeHas(x, y float64) bool {
	return x >= s.min[0] && x <= s.max[0] && y >= s.min[1] && y <= s.max[1]
}

// locate classifies c against a polygon with holes.
func locate(p *geom.Polygon, c geom.Coord) location.Type {
	layout := p.Layout()
	shell := xy.LocatePointInRing(layout, c, p.LinearRing(0).FlatCoords())
	if shell != location.Interior {
		return shell
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		switch xy.LocatePointInRing(layout, c, p.LinearRing(i).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

func polygonsIntersect(a, b *geom.Polygon) bool {
	if ringsCross(a, b) {
		return true
	}
	// No boundary crossings: either one polygon lies inside the other or
	// they are disjoint. Any vertex decides.
	if locate(b, firstCoord(a)) != location.Exterior {
		return true
	}
	return locate(a, firstCoord(b)) != location.Exterior
}

func firstCoord(p *geom.Polygon) geom.Coord {
	flat := p.LinearRing(0).FlatCoords()
	return geom.Coord{flat[0], flat[1]}
}

func ringsCross(a, b *geom.Polygon) bool {
	sa, sb := a.Layout().Stride(), b.Layout().Stride()
	for i := 0; i < a.NumLinearRings(); i++ {
		ra := a.LinearRing(i).FlatCoords()
		for j := 0; j < b.NumLinearRings(); j++ {
			rb := b.LinearRing(j).FlatCoords()
			for x := 0; x+sa < len(ra); x += sa {
				p1 := geom.Coord{ra[x], ra[x+1]}
				p2 := geom.Coord{ra[x+sa], ra[x+sa+1]}
				for y := 0; y+sb < len(rb); y += sb {
					q1 := geom.Coord{rb[y], rb[y+1]}
					q2 := geom.Coord{rb[y+sb], rb[y+sb+1]}
					if segmentsIntersect(p1, p2, q1, q2) {
						return true
					}
				}
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 geom.Coord) bool {
	o1 := xy.OrientationIndex(p1, p2, q1)
	o2 := xy.OrientationIndex(p1, p2, q2)
	o3 := xy.OrientationIndex(q1, q2, p1)
	o4 := xy.OrientationIndex(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == orientation.Collinear && xy.IsPointWithinLineBounds(q1, p1, p2):
		return true
	case o2 == orientation.Collinear && xy.IsPointWithinLineBounds(q2, p1, p2):
		return true
	case o3 == orientation.Collinear && xy.IsPointWithinLineBounds(p1, q1, q2):
		return true
	case o4 == orientation.Collinear && xy.IsPointWithinLineBounds(p2, q1, q2):
		return true
	}
	return false
}
