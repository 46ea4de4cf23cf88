// Package residence estimates where users live or work from the pings they
// leave inside a target area during a recurring hour window.
package residence

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/model"
)

// HourWindow is a half-open hour-of-day range [Start, End). When Start > End
// the window wraps past midnight.
type HourWindow struct {
	Start int `json:"start_hour" mapstructure:"start_hour"`
	End   int `json:"end_hour" mapstructure:"end_hour"`
}

var (
	// NightWindow covers 22:00 to 05:00.
	NightWindow = HourWindow{Start: 22, End: 5}
	// WorkWindow covers 08:00 to 18:00.
	WorkWindow = HourWindow{Start: 8, End: 18}
)

// Contains reports whether hour h falls inside the window.
func (w HourWindow) Contains(h int) bool {
	if w.Start <= w.End {
		return w.Start <= h && h < w.End
	}
	return h >= w.Start || h < w.End
}

// Validate checks both bounds are hours of day.
func (w HourWindow) Validate() error {
	if w.Start < 0 || w.Start > 23 || w.End < 0 || w.End > 24 {
		return eris.Errorf("residence: invalid hour window %d-%d", w.Start, w.End)
	}
	return nil
}

// Coordinate is the estimated location of one user.
type Coordinate struct {
	UserID string  `json:"user_id"`
	Lat    float64 `json:"latitude"`
	Lng    float64 `json:"longitude"`
	Pings  int     `json:"pings"`
}

// Result is the estimator bundle. With StatusNoUsers or
// StatusLocationNotFound every slice is nil.
type Result struct {
	Status    model.Status `json:"status"`
	Location1 string       `json:"location1"`
	Location2 string       `json:"location2"`
	Window    HourWindow   `json:"window"`

	// Windowed holds every ping inside the hour window.
	Windowed []model.Ping `json:"-"`
	// Users holds the windowed pings of users seen in both locations.
	Users []model.Ping `json:"-"`
	// Estimates holds one mean coordinate per user, sorted by user id.
	Estimates []Coordinate `json:"estimates"`
}

// Estimate finds users with at least one ping in loc1 and one in loc2, keeps
// their pings inside the hour window that fall in loc2, and averages lat and
// lng per user.
func Estimate(pings []model.Ping, areas []model.Area, loc1, loc2 string, window HourWindow) (Result, error) {
	res := Result{Status: model.StatusOK, Location1: loc1, Location2: loc2, Window: window}
	if err := window.Validate(); err != nil {
		return Result{}, err
	}
	if len(areas) == 0 {
		return Result{}, assign.ErrNoAreas
	}

	a1, ok1 := model.FindArea(areas, loc1)
	a2, ok2 := model.FindArea(areas, loc2)
	if !ok1 || !ok2 || !a1.HasBoundary() || !a2.HasBoundary() {
		zap.L().Debug("residence: location not found",
			zap.String("location1", loc1),
			zap.String("location2", loc2),
		)
		res.Status = model.StatusLocationNotFound
		return res, nil
	}

	mem, err := assign.Containment(pings, []model.Area{a1, a2}, assign.Options{})
	if err != nil {
		return Result{}, eris.Wrap(err, "residence: containment")
	}

	in1, in2 := make(map[string]bool), make(map[string]bool)
	for p := range pings {
		u := pings[p].UserID
		if u == "" {
			continue
		}
		if mem.Inside(0, p) {
			in1[u] = true
		}
		if mem.Inside(1, p) {
			in2[u] = true
		}
	}
	both := make(map[string]bool)
	for u := range in1 {
		if in2[u] {
			both[u] = true
		}
	}
	if len(both) == 0 {
		res.Status = model.StatusNoUsers
		return res, nil
	}

	type acc struct {
		lat, lng float64
		n        int
	}
	sums := make(map[string]*acc)
	for p := range pings {
		if !window.Contains(pings[p].Hour()) {
			continue
		}
		res.Windowed = append(res.Windowed, pings[p])
		u := pings[p].UserID
		if !both[u] {
			continue
		}
		res.Users = append(res.Users, pings[p])
		if !mem.Inside(1, p) {
			continue
		}
		s, ok := sums[u]
		if !ok {
			s = &acc{}
			sums[u] = s
		}
		s.lat += pings[p].Lat
		s.lng += pings[p].Lng
		s.n++
	}

	res.Estimates = make([]Coordinate, 0, len(sums))
	for u, s := range sums {
		res.Estimates = append(res.Estimates, Coordinate{
			UserID: u,
			Lat:    s.lat / float64(s.n),
			Lng:    s.lng / float64(s.n),
			Pings:  s.n,
		})
	}
	sort.Slice(res.Estimates, func(i, j int) bool { return res.Estimates[i].UserID < res.Estimates[j].UserID })
	return res, nil
}
