package residence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mobility-cli/internal/geometry"
	"github.com/sells-group/mobility-cli/internal/model"
)

func TestHourWindow_Contains(t *testing.T) {
	tests := []struct {
		name   string
		window HourWindow
		hour   int
		want   bool
	}{
		{"night late", NightWindow, 23, true},
		{"night early", NightWindow, 2, true},
		{"night start", NightWindow, 22, true},
		{"night end exclusive", NightWindow, 5, false},
		{"night noon", NightWindow, 12, false},
		{"work morning", WorkWindow, 10, true},
		{"work start", WorkWindow, 8, true},
		{"work end exclusive", WorkWindow, 18, false},
		{"work evening", WorkWindow, 20, false},
		{"empty window", HourWindow{Start: 6, End: 6}, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(tt.hour))
		})
	}
}

func TestHourWindow_Validate(t *testing.T) {
	assert.NoError(t, NightWindow.Validate())
	assert.NoError(t, HourWindow{Start: 0, End: 24}.Validate())
	assert.Error(t, HourWindow{Start: -1, End: 5}.Validate())
	assert.Error(t, HourWindow{Start: 22, End: 25}.Validate())
}

var base = time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)

func p(user string, hour int, lat, lng float64) model.Ping {
	return model.Ping{UserID: user, Timestamp: base.Add(time.Duration(hour) * time.Hour), Lat: lat, Lng: lng}
}

func testAreas(t *testing.T) []model.Area {
	t.Helper()
	home := geometry.DecodeString("POLYGON((0 0, 2 0, 2 2, 0 2, 0 0))")
	mall := geometry.DecodeString("POLYGON((10 10, 12 10, 12 12, 10 12, 10 10))")
	require.NotNil(t, home)
	require.NotNil(t, mall)
	return []model.Area{
		{Name: "Arkadia", Boundary: mall},
		{Name: "Osiedle Wilanów", Boundary: home},
		{Name: "Unparsed"},
	}
}

func TestEstimate(t *testing.T) {
	pings := []model.Ping{
		// u1 visits the mall by day and sleeps at home.
		p("u1", 14, 11, 11),
		p("u1", 23, 1, 1),
		p("u1", 26, 1.5, 0.5),
		p("u1", 23+24, 20, 20),
		// u2 only ever at home.
		p("u2", 23, 1, 1),
		// u3 in both but never home at night.
		p("u3", 14, 11, 11),
		p("u3", 15, 1, 1),
		p("u3", 23, 11, 11),
	}
	res, err := Estimate(pings, testAreas(t), "Arkadia", "Osiedle Wilanów", NightWindow)
	require.NoError(t, err)

	assert.Equal(t, model.StatusOK, res.Status)
	assert.Len(t, res.Windowed, 5)
	assert.Len(t, res.Users, 4)
	require.Len(t, res.Estimates, 1)
	assert.Equal(t, "u1", res.Estimates[0].UserID)
	assert.InDelta(t, 1.25, res.Estimates[0].Lat, 1e-9)
	assert.InDelta(t, 0.75, res.Estimates[0].Lng, 1e-9)
	assert.Equal(t, 2, res.Estimates[0].Pings)
}

func TestEstimate_EstimatesSortedByUser(t *testing.T) {
	var pings []model.Ping
	for _, u := range []string{"c", "a", "b"} {
		pings = append(pings, p(u, 12, 11, 11), p(u, 10, 1, 1))
	}
	res, err := Estimate(pings, testAreas(t), "Arkadia", "Osiedle Wilanów", WorkWindow)
	require.NoError(t, err)

	require.Len(t, res.Estimates, 3)
	assert.Equal(t, "a", res.Estimates[0].UserID)
	assert.Equal(t, "b", res.Estimates[1].UserID)
	assert.Equal(t, "c", res.Estimates[2].UserID)
}

func TestEstimate_NoUsers(t *testing.T) {
	pings := []model.Ping{p("u1", 23, 1, 1), p("u2", 14, 11, 11)}
	res, err := Estimate(pings, testAreas(t), "Arkadia", "Osiedle Wilanów", NightWindow)
	require.NoError(t, err)

	assert.Equal(t, model.StatusNoUsers, res.Status)
	assert.Nil(t, res.Windowed)
	assert.Nil(t, res.Users)
	assert.Nil(t, res.Estimates)

	res, err = Estimate(nil, testAreas(t), "Arkadia", "Osiedle Wilanów", NightWindow)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoUsers, res.Status)
}

func TestEstimate_LocationNotFound(t *testing.T) {
	for _, loc := range []string{"Nowhere", "Unparsed"} {
		res, err := Estimate(nil, testAreas(t), loc, "Osiedle Wilanów", NightWindow)
		require.NoError(t, err)
		assert.Equal(t, model.StatusLocationNotFound, res.Status, loc)
	}
}

func TestEstimate_Errors(t *testing.T) {
	_, err := Estimate(nil, nil, "a", "b", NightWindow)
	assert.Error(t, err)

	_, err = Estimate(nil, testAreas(t), "Arkadia", "Osiedle Wilanów", HourWindow{Start: 30})
	assert.Error(t, err)
}
