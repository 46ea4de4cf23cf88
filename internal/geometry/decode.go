// Package geometry decodes area and building boundaries and evaluates the
// spatial predicates used by the analyses.
package geometry

import (
	"encoding/hex"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"
)

// Decode parses a binary WKB or EWKB geometry. Text input (hex or WKT stored
// as bytes) is delegated to DecodeString. Returns nil when the geometry cannot
// be parsed or is not a valid polygon or multipolygon.
func Decode(data []byte) *Shape {
	if len(data) == 0 {
		return nil
	}
	if data[0] > 1 {
		return DecodeString(string(data))
	}

	g, err := unmarshalBinary(data)
	if err != nil {
		zap.L().Debug("geometry: discarding unparseable wkb", zap.Int("bytes", len(data)), zap.Error(err))
		return nil
	}
	return FromGeom(g)
}

// DecodeString parses hex-encoded (E)WKB or WKT, with or without an
// "SRID=n;" prefix. Returns nil on any failure.
func DecodeString(s string) *Shape {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if isHex(s) {
		g, err := wkbhex.Decode(s)
		if err != nil {
			raw, hexErr := hex.DecodeString(s)
			if hexErr != nil {
				zap.L().Debug("geometry: discarding malformed hex", zap.Error(hexErr))
				return nil
			}
			g, err = ewkb.Unmarshal(raw)
		}
		if err != nil {
			zap.L().Debug("geometry: discarding unparseable hex wkb", zap.Error(err))
			return nil
		}
		return FromGeom(g)
	}

	if strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return nil
		}
		s = s[idx+1:]
	}

	g, err := wkt.Unmarshal(s)
	if err != nil {
		zap.L().Debug("geometry: discarding unparseable wkt", zap.Error(err))
		return nil
	}
	return FromGeom(g)
}

// DecodeAny accepts the raw values produced by tabular sources and database
// drivers: []byte, string, geom.T or an already decoded *Shape.
func DecodeAny(v any) *Shape {
	switch val := v.(type) {
	case nil:
		return nil
	case *Shape:
		return val
	case []byte:
		return Decode(val)
	case string:
		return DecodeString(val)
	case geom.T:
		return FromGeom(val)
	default:
		zap.L().Debug("geometry: unsupported geometry value", zap.String("type", typeName(v)))
		return nil
	}
}

// FromGeom validates a go-geom geometry and wraps it as a Shape. Only polygons
// and multipolygons are accepted.
func FromGeom(g geom.T) *Shape {
	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	default:
		zap.L().Debug("geometry: unsupported geometry type", zap.String("type", typeName(g)))
		return nil
	}

	if len(polys) == 0 {
		return nil
	}
	for _, p := range polys {
		if err := validatePolygon(p); err != nil {
			zap.L().Debug("geometry: discarding invalid polygon", zap.Error(err))
			return nil
		}
	}
	return newShape(g, polys)
}

func unmarshalBinary(data []byte) (geom.T, error) {
	g, err := wkb.Unmarshal(data)
	if err == nil {
		return g, nil
	}
	g, ewkbErr := ewkb.Unmarshal(data)
	if ewkbErr != nil {
		return nil, eris.Wrap(err, "geometry: unmarshal wkb")
	}
	return g, nil
}

func validatePolygon(p *geom.Polygon) error {
	if p.NumLinearRings() == 0 {
		return eris.New("geometry: empty polygon")
	}
	stride := p.Layout().Stride()
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		n := len(flat) / stride
		if n < 4 {
			return eris.Errorf("geometry: ring %d has %d positions, need at least 4", i, n)
		}
		for j := 0; j < len(flat); j += stride {
			if math.IsNaN(flat[j]) || math.IsNaN(flat[j+1]) || math.IsInf(flat[j], 0) || math.IsInf(flat[j+1], 0) {
				return eris.Errorf("geometry: ring %d has a non-finite coordinate", i)
			}
		}
		last := len(flat) - stride
		if flat[0] != flat[last] || flat[1] != flat[last+1] {
			return eris.Errorf("geometry: ring %d is not closed", i)
		}
	}
	return nil
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case *geom.Point:
		return "Point"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "unknown"
	}
}
