// Package repeat finds users who return to an area within a decay window.
package repeat

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/model"
)

// DefaultWindowDays is the decay window used when none is configured.
const DefaultWindowDays = 14

const day = 24 * time.Hour

// Visit is a qualifying repeat: an in-area ping no more than the window after
// the same user's previous in-area ping.
type Visit struct {
	Area      string    `json:"location"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"occured_at"`
	Previous  time.Time `json:"previous_visit"`
	GapDays   int       `json:"time_diff_days"`
}

// AreaCount is the number of distinct users with at least one qualifying
// repeat in an area.
type AreaCount struct {
	Area  string `json:"location"`
	Users int    `json:"users"`
}

// Frequency is one bucket of the per-area repeat distribution: the share of
// the area's repeat users that made exactly Repeats qualifying repeats.
type Frequency struct {
	Area    string  `json:"location"`
	Repeats int     `json:"visit_count"`
	Users   int     `json:"users"`
	Percent float64 `json:"percentage"`
}

// Result bundles the summary, frequency table and qualifying visits.
type Result struct {
	Status      model.Status `json:"status"`
	WindowDays  int          `json:"window_days"`
	Summary     []AreaCount  `json:"summary"`
	Frequencies []Frequency  `json:"frequencies"`
	Visits      []Visit      `json:"visits"`
}

// Analyze computes repeat visits for every area of the membership table.
// Every area appears in Summary; only areas with repeats appear in
// Frequencies, ordered by area then ascending repeat count.
func Analyze(pings []model.Ping, membership *assign.Membership, windowDays int) (Result, error) {
	if err := membership.Check(pings); err != nil {
		return Result{}, err
	}
	if windowDays < 0 {
		return Result{}, eris.Errorf("repeat: negative window %d", windowDays)
	}

	res := Result{
		Status:     model.StatusOK,
		WindowDays: windowDays,
		Summary:    make([]AreaCount, len(membership.Areas)),
	}
	for a, area := range membership.Areas {
		res.Summary[a].Area = area.Name
	}

	if len(pings) == 0 {
		res.Status = model.StatusNoData
		return res, nil
	}
	if !model.HasUserIDs(pings) {
		res.Status = model.StatusMissingUserID
		return res, nil
	}

	total := 0
	for a, area := range membership.Areas {
		visits := areaRepeats(pings, membership.PingsIn(a), area.Name, windowDays)
		if len(visits) == 0 {
			continue
		}
		res.Visits = append(res.Visits, visits...)

		perUser := make(map[string]int)
		for _, v := range visits {
			perUser[v.UserID]++
		}
		res.Summary[a].Users = len(perUser)
		total += len(perUser)
		res.Frequencies = append(res.Frequencies, frequencies(area.Name, perUser)...)
	}

	if total == 0 {
		res.Status = model.StatusNoData
	}
	return res, nil
}

// areaRepeats returns the qualifying repeats among the given ping indexes.
// Users are processed in order of first appearance.
func areaRepeats(pings []model.Ping, idx []int, area string, windowDays int) []Visit {
	var order []string
	byUser := make(map[string][]int)
	for _, p := range idx {
		u := pings[p].UserID
		if u == "" {
			continue
		}
		if _, ok := byUser[u]; !ok {
			order = append(order, u)
		}
		byUser[u] = append(byUser[u], p)
	}

	var out []Visit
	for _, u := range order {
		seq := byUser[u]
		if len(seq) < 2 {
			continue
		}
		sort.SliceStable(seq, func(i, j int) bool {
			return pings[seq[i]].Timestamp.Before(pings[seq[j]].Timestamp)
		})
		for i := 1; i < len(seq); i++ {
			prev, cur := pings[seq[i-1]].Timestamp, pings[seq[i]].Timestamp
			gap := gapDays(cur.Sub(prev))
			if gap > windowDays {
				continue
			}
			out = append(out, Visit{
				Area:      area,
				UserID:    u,
				Timestamp: cur,
				Previous:  prev,
				GapDays:   gap,
			})
		}
	}
	return out
}

// gapDays truncates a non-negative duration to whole days.
func gapDays(d time.Duration) int {
	return int(d / day)
}

func frequencies(area string, perUser map[string]int) []Frequency {
	buckets := make(map[int]int)
	for _, n := range perUser {
		buckets[n]++
	}
	out := make([]Frequency, 0, len(buckets))
	for repeats, users := range buckets {
		out = append(out, Frequency{
			Area:    area,
			Repeats: repeats,
			Users:   users,
			Percent: float64(users) / float64(len(perUser)) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repeats < out[j].Repeats })
	return out
}

// FrequenciesFor returns the frequency rows of one area.
func (r Result) FrequenciesFor(area string) []Frequency {
	var out []Frequency
	for _, f := range r.Frequencies {
		if f.Area == area {
			out = append(out, f)
		}
	}
	return out
}

// UsersIn returns the summary count for an area, or 0 when it is unknown.
func (r Result) UsersIn(area string) int {
	for _, s := range r.Summary {
		if s.Area == area {
			return s.Users
		}
	}
	return 0
}
