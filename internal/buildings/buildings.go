// Package buildings summarizes the building stock that intersects an area.
package buildings

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/model"
)

// TypeCount is the number of matched buildings of one type.
type TypeCount struct {
	Type  string `json:"building_type"`
	Count int    `json:"count"`
}

// Summary describes the buildings intersecting one area.
type Summary struct {
	Status      model.Status `json:"status"`
	Area        string       `json:"location"`
	Buildings   int          `json:"buildings"`
	Types       []TypeCount  `json:"types"`
	MeanFloors  float64      `json:"mean_floors"`
	MeanAreaSqm float64      `json:"mean_area_sqm"`
	Error       string       `json:"error,omitempty"`
}

// Summarize counts buildings by type and averages floors and footprint area
// over every building whose footprint intersects the named area. Touching the
// boundary counts as inside.
func Summarize(buildings []model.Building, areas []model.Area, name string) Summary {
	s := Summary{Status: model.StatusOK, Area: name, Types: []TypeCount{}}

	area, ok := model.FindArea(areas, name)
	if !ok || !area.HasBoundary() {
		zap.L().Debug("buildings: location not found", zap.String("area", name))
		s.Status = model.StatusLocationNotFound
		return s
	}

	counts := make(map[string]int)
	var floors, sqm float64
	for _, b := range buildings {
		if b.Boundary == nil || !area.Boundary.Intersects(b.Boundary) {
			continue
		}
		s.Buildings++
		counts[b.Type]++
		floors += b.Floors
		sqm += b.AreaSqm
	}

	if s.Buildings == 0 {
		s.Status = model.StatusNoData
		return s
	}

	for t, n := range counts {
		s.Types = append(s.Types, TypeCount{Type: t, Count: n})
	}
	sort.Slice(s.Types, func(i, j int) bool {
		if s.Types[i].Count != s.Types[j].Count {
			return s.Types[i].Count > s.Types[j].Count
		}
		return s.Types[i].Type < s.Types[j].Type
	})
	s.MeanFloors = floors / float64(s.Buildings)
	s.MeanAreaSqm = sqm / float64(s.Buildings)
	return s
}

// SummarizeMany runs Summarize for each name. A failure in one area is
// recorded on its summary and does not stop the others.
func SummarizeMany(buildings []model.Building, areas []model.Area, names []string) []Summary {
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		out = append(out, summarizeIsolated(buildings, areas, name))
	}
	return out
}

func summarizeIsolated(buildings []model.Building, areas []model.Area, name string) (s Summary) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("buildings: area analysis failed",
				zap.String("area", name),
				zap.Any("panic", r),
			)
			s = Summary{Status: model.StatusFailed, Area: name, Types: []TypeCount{}, Error: fmt.Sprint(r)}
		}
	}()
	return Summarize(buildings, areas, name)
}

var (
	lowerUpper = regexp.MustCompile(`([a-z])([A-Z])`)
	upperWord  = regexp.MustCompile(`([A-Z])([A-Z][a-z])`)
	upperUpper = regexp.MustCompile(`([A-Z])([A-Z])`)
)

// TypeLabel turns a CamelCase register code like "BudynekMieszkalnyJednorodzinny"
// into lower-case words for display.
func TypeLabel(t string) string {
	t = lowerUpper.ReplaceAllString(t, "$1 $2")
	t = upperWord.ReplaceAllString(t, "$1 $2")
	t = upperUpper.ReplaceAllString(t, "$1 $2")
	return strings.ToLower(t)
}
