package demographic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mobility-cli/internal/geometry"
	"github.com/sells-group/mobility-cli/internal/model"
)

func testAreas(t *testing.T) []model.Area {
	t.Helper()
	b := geometry.DecodeString("POLYGON((21 52, 22 52, 22 53, 21 53, 21 52))")
	require.NotNil(t, b)
	return []model.Area{
		{Name: "Osiedle Wilanów", Boundary: b, Lat: 52.5, Lng: 21.5},
		{Name: "no boundary", Lat: 1, Lng: 1},
	}
}

func cell(lat, lng float64, counts map[string]float64) model.PopulationCell {
	return model.PopulationCell{Lat: lat, Lng: lng, Counts: counts}
}

func TestSummarize(t *testing.T) {
	cells := []model.PopulationCell{
		cell(52.2, 21.2, map[string]float64{"FEMALE0003": 10, "MALE0003": 5, "FEMALE2529": 15}),
		cell(52.8, 21.8, map[string]float64{"MALE9099": 20}),
		cell(10, 10, map[string]float64{"FEMALE0003": 1000}),
		cell(52, 21.5, map[string]float64{"FEMALE0003": 1000}),
	}
	s := Summarize(cells, testAreas(t), "Osiedle Wilanów")

	assert.Equal(t, model.StatusOK, s.Status)
	assert.Equal(t, 2, s.Cells)
	assert.Equal(t, 52.5, s.Lat)
	assert.Equal(t, 25.0, s.Female)
	assert.Equal(t, 25.0, s.Male)
	assert.Equal(t, 50.0, s.Total)
	assert.InDelta(t, 50.0, s.FemalePct, 1e-9)
	assert.InDelta(t, 50.0, s.MalePct, 1e-9)
	assert.InDelta(t, 20.0, s.BucketPct["FEMALE0003"], 1e-9)
	assert.InDelta(t, 40.0, s.BucketPct["MALE9099"], 1e-9)

	var sum float64
	for _, p := range s.BucketPct {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestSummarize_NoData(t *testing.T) {
	s := Summarize([]model.PopulationCell{cell(0.5, 0.5, map[string]float64{"MALE0003": 3})}, testAreas(t), "Osiedle Wilanów")
	assert.Equal(t, model.StatusNoData, s.Status)
	assert.Zero(t, s.Total)
	assert.Nil(t, s.BucketPct)

	s = Summarize(nil, testAreas(t), "Osiedle Wilanów")
	assert.Equal(t, model.StatusNoData, s.Status)
}

func TestSummarize_LocationNotFound(t *testing.T) {
	for _, name := range []string{"missing", "no boundary"} {
		s := Summarize(nil, testAreas(t), name)
		assert.Equal(t, model.StatusLocationNotFound, s.Status, name)
	}
}

func TestSummary_Pyramid(t *testing.T) {
	cells := []model.PopulationCell{
		cell(52.5, 21.5, map[string]float64{"FEMALE0307": 3, "MALE0307": 1}),
	}
	rows := Summarize(cells, testAreas(t), "Osiedle Wilanów").Pyramid()

	require.Len(t, rows, len(model.AgeBands))
	assert.Equal(t, "00 - 03", rows[0].Label)
	assert.Equal(t, Band{Label: "03 - 07", Female: 3, Male: 1, FemalePct: 75, MalePct: 25}, rows[1])
}
