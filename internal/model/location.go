package model

import "time"

type LocationPoint struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SamePosition reports whether both points hold the same coordinates.
func (p *LocationPoint) SamePosition(other *LocationPoint) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Lat == other.Lat && p.Lng == other.Lng
}

// Geometry is derived from the two current points and never persisted.
type Geometry struct {
	DistanceKm   float64 `json:"distanceKm"`
	BearingDeg   float64 `json:"bearingDeg"`
	Compass      string  `json:"compass"`
	DriveMinutes int     `json:"driveMinutes"`
}
