package ingest

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/fetcher"
)

// ReadShapefile reads a polygon shapefile into a table: one column per DBF
// field plus a hex WKB "geometry" column. Records whose shape is not a
// polygon get an empty geometry.
func ReadShapefile(shpPath string) (*fetcher.Table, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	header := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		header = append(header, strings.TrimRight(f.String(), "\x00"))
	}
	header = append(header, "geometry")

	t := &fetcher.Table{Header: header}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		row := make([]string, len(header))
		for i := range fields {
			row[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		if g := shapeToGeom(shape); g != nil {
			h, err := wkbhex.Encode(g, wkb.NDR)
			if err != nil {
				zap.L().Debug("ingest: encode shapefile record", zap.Int("record", n), zap.Error(err))
				skipped++
			} else {
				row[len(row)-1] = h
			}
		} else {
			skipped++
		}
		t.Rows = append(t.Rows, row)
	}

	if skipped > 0 {
		zap.L().Debug("ingest: shapefile records without polygon geometry",
			zap.String("path", shpPath),
			zap.Int("records", skipped),
		)
	}
	return t, nil
}

// shapeToGeom converts a shapefile polygon into a go-geom MultiPolygon.
// Clockwise rings start a new polygon; counter-clockwise rings are holes of
// the polygon before them.
func shapeToGeom(shape shp.Shape) geom.T {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon part", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || start >= end {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) > 0 && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("ingest: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}
		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("ingest: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64
	for i := 0; i+3 < len(flat); i += 2 {
		sum += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return sum / 2
}
