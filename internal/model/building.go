package model

import "github.com/sells-group/mobility-cli/internal/geometry"

// Building is a building footprint from the building register.
type Building struct {
	ID       string          `json:"id"`
	Boundary *geometry.Shape `json:"-"`
	Type     string          `json:"building_type"`
	Floors   float64         `json:"floor_count"`
	AreaSqm  float64         `json:"area_sqm"`
}
