package assign

import (
	"github.com/tidwall/rtree"

	"github.com/sells-group/mobility-cli/internal/model"
)

// areaIndex is an R-tree over area envelopes keyed by column index.
type areaIndex struct {
	tr rtree.RTree
}

func newAreaIndex(areas []model.Area) *areaIndex {
	idx := &areaIndex{}
	for i, a := range areas {
		minC, maxC := a.Boundary.Bounds()
		idx.tr.Insert(minC, maxC, i)
	}
	return idx
}

// search calls fn for every area whose envelope contains the point.
func (ix *areaIndex) search(lng, lat float64, fn func(area int)) {
	pt := [2]float64{lng, lat}
	ix.tr.Search(pt, pt, func(_, _ [2]float64, data interface{}) bool {
		fn(data.(int))
		return true
	})
}
