// Package model defines the entities shared by the mobility analyses.
package model

import "time"

// Ping is a single timestamped location signal from an anonymous user device.
type Ping struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"occured_at"`
	Lat       float64   `json:"latitude"`
	Lng       float64   `json:"longitude"`
}

// Hour returns the hour of day of the ping's naive timestamp. No timezone
// conversion is applied.
func (p Ping) Hour() int {
	return p.Timestamp.Hour()
}

// ValidCoordinates reports whether lat/lng are inside the WGS84 range and not
// the zero "no fix" sentinel.
func ValidCoordinates(lat, lng float64) bool {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	return lat != 0 && lng != 0
}

// HasUserIDs reports whether at least one ping carries a user identifier.
func HasUserIDs(pings []Ping) bool {
	for i := range pings {
		if pings[i].UserID != "" {
			return true
		}
	}
	return false
}
