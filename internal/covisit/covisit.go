// Package covisit counts the users shared between pairs of areas.
package covisit

import (
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/model"
)

// Matrix is a symmetric area × area table of shared visitors. Cells[i][j] is
// the number of qualifying users seen in both Areas[i] and Areas[j]; the
// diagonal counts qualifying users seen in the area at all.
type Matrix struct {
	Status model.Status `json:"status"`
	Areas  []string     `json:"areas"`
	Cells  [][]int      `json:"cells"`
	// Users is the number of users with more than one in-area ping.
	Users int `json:"users"`
}

// At returns the cell for two area names, or 0 when either is unknown.
func (m Matrix) At(a, b string) int {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Cells[i][j]
}

func (m Matrix) index(name string) int {
	for i, n := range m.Areas {
		if n == name {
			return i
		}
	}
	return -1
}

// Build aggregates containment membership per user into the co-visitation
// matrix. Only users whose in-area ping count summed over all areas exceeds one
// are counted.
func Build(pings []model.Ping, membership *assign.Membership) (Matrix, error) {
	if err := membership.Check(pings); err != nil {
		return Matrix{}, err
	}

	n := len(membership.Areas)
	m := Matrix{
		Status: model.StatusOK,
		Areas:  membership.Names(),
		Cells:  make([][]int, n),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]int, n)
	}

	if len(pings) == 0 {
		m.Status = model.StatusNoData
		return m, nil
	}
	if !model.HasUserIDs(pings) {
		zap.L().Debug("covisit: pings carry no user id")
		m.Status = model.StatusMissingUserID
		return m, nil
	}

	counts := make(map[string][]int)
	for p := range pings {
		user := pings[p].UserID
		if user == "" {
			continue
		}
		for a := 0; a < n; a++ {
			if !membership.Inside(a, p) {
				continue
			}
			c, ok := counts[user]
			if !ok {
				c = make([]int, n)
				counts[user] = c
			}
			c[a]++
		}
	}

	for _, c := range counts {
		total := 0
		for _, v := range c {
			total += v
		}
		if total <= 1 {
			continue
		}
		m.Users++
		for i := 0; i < n; i++ {
			if c[i] == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				if c[j] > 0 {
					m.Cells[i][j]++
				}
			}
		}
	}

	if m.Users == 0 {
		m.Status = model.StatusNoData
	}
	return m, nil
}
