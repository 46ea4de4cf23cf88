package geometry

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"
)

const (
	square     = "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))"
	donut      = "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0), (4 4, 6 4, 6 6, 4 6, 4 4))"
	twoSquares = "MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((5 5, 6 5, 6 6, 5 6, 5 5)))"
)

func mustShape(t *testing.T, s string) *Shape {
	t.Helper()
	sh := DecodeString(s)
	require.NotNil(t, sh, "decode %q", s)
	return sh
}

func TestDecodeString_WKT(t *testing.T) {
	sh := mustShape(t, square)
	assert.Equal(t, 1, sh.NumPolygons())
	minC, maxC := sh.Bounds()
	assert.Equal(t, [2]float64{0, 0}, minC)
	assert.Equal(t, [2]float64{10, 10}, maxC)
}

func TestDecodeString_SRIDPrefix(t *testing.T) {
	sh := DecodeString("SRID=4326;" + square)
	require.NotNil(t, sh)
	assert.True(t, sh.ContainsPoint(5, 5))
}

func TestDecode_BinaryWKB(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
	})
	data, err := wkb.Marshal(poly, wkb.NDR)
	require.NoError(t, err)

	sh := Decode(data)
	require.NotNil(t, sh)
	assert.True(t, sh.ContainsPoint(1, 1))
}

func TestDecode_EWKBWithSRID(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
	}).SetSRID(4326)
	data, err := ewkb.Marshal(poly, ewkb.NDR)
	require.NoError(t, err)

	sh := Decode(data)
	require.NotNil(t, sh)
	assert.True(t, sh.ContainsPoint(1, 1))

	// Hex encoded EWKB, as exported by PostGIS.
	sh = DecodeString(hex.EncodeToString(data))
	require.NotNil(t, sh)
	assert.True(t, sh.ContainsPoint(1.5, 0.5))
}

func TestWKBHexRoundTrip(t *testing.T) {
	sh := mustShape(t, donut)
	h, err := sh.WKBHex()
	require.NoError(t, err)

	back := DecodeString(h)
	require.NotNil(t, back)
	assert.False(t, back.ContainsPoint(5, 5))
	assert.True(t, back.ContainsPoint(2, 2))
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not a geometry"},
		{"bad hex", "0103000000zz"},
		{"truncated hex", "01030000000100000005000000"},
		{"point", "POINT(1 2)"},
		{"linestring", "LINESTRING(0 0, 1 1)"},
		{"open ring", "POLYGON((0 0, 1 0, 1 1, 0 1))"},
		{"too few positions", "POLYGON((0 0, 1 0, 0 0))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, DecodeString(tt.input))
		})
	}

	assert.Nil(t, Decode(nil))
	assert.Nil(t, Decode([]byte{0x01, 0x03, 0x00}))
}

func TestDecodeAny(t *testing.T) {
	sh := mustShape(t, square)
	assert.Same(t, sh, DecodeAny(sh))
	assert.NotNil(t, DecodeAny(square))
	assert.NotNil(t, DecodeAny([]byte(square)))
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	assert.NotNil(t, DecodeAny(poly))
	assert.Nil(t, DecodeAny(nil))
	assert.Nil(t, DecodeAny(42))
}

func TestContainsPoint(t *testing.T) {
	sq := mustShape(t, square)
	d := mustShape(t, donut)
	multi := mustShape(t, twoSquares)

	tests := []struct {
		name  string
		shape *Shape
		x, y  float64
		want  bool
	}{
		{"interior", sq, 5, 5, true},
		{"outside", sq, 11, 5, false},
		{"on edge", sq, 10, 5, false},
		{"on vertex", sq, 0, 0, false},
		{"in hole", d, 5, 5, false},
		{"on hole edge", d, 4, 5, false},
		{"between shell and hole", d, 2, 2, true},
		{"first part", multi, 0.5, 0.5, true},
		{"second part", multi, 5.5, 5.5, true},
		{"between parts", multi, 3, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.ContainsPoint(tt.x, tt.y))
		})
	}

	var nilShape *Shape
	assert.False(t, nilShape.ContainsPoint(1, 1))
}

func TestIntersects(t *testing.T) {
	sq := mustShape(t, square)
	d := mustShape(t, donut)

	tests := []struct {
		name  string
		other string
		base  *Shape
		want  bool
	}{
		{"overlapping", "POLYGON((8 8, 12 8, 12 12, 8 12, 8 8))", sq, true},
		{"contained", "POLYGON((2 2, 3 2, 3 3, 2 3, 2 2))", sq, true},
		{"containing", "POLYGON((-5 -5, 20 -5, 20 20, -5 20, -5 -5))", sq, true},
		{"touching edge", "POLYGON((10 0, 12 0, 12 2, 10 2, 10 0))", sq, true},
		{"disjoint", "POLYGON((20 20, 21 20, 21 21, 20 21, 20 20))", sq, false},
		{"envelope overlap only", "POLYGON((11 -1, 12 -1, 12 11, 11 11, 11 -1))", sq, false},
		{"inside hole", "POLYGON((4.5 4.5, 5.5 4.5, 5.5 5.5, 4.5 5.5, 4.5 4.5))", d, false},
		{"crossing hole edge", "POLYGON((5 5, 7 5, 7 7, 5 7, 5 5))", d, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := mustShape(t, tt.other)
			assert.Equal(t, tt.want, tt.base.Intersects(o))
			assert.Equal(t, tt.want, o.Intersects(tt.base))
		})
	}

	assert.False(t, sq.Intersects(nil))
}
