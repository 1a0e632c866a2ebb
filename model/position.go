package model

import (
	"math"
	"time"
)

// Position is the orbital state derived for a satellite at one instant.
// Altitude is the elevation angle above the observer's horizon and Azimuth
// is measured clockwise from north; Latitude/Longitude locate the
// sub-satellite point. All angles are radians unless converted.
type Position struct {
	Altitude  float64
	Azimuth   float64
	Latitude  float64
	Longitude float64
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Degrees returns a copy of p with every field converted to degrees.
func (p Position) Degrees() Position {
	return Position{
		Altitude:  RadToDeg(p.Altitude),
		Azimuth:   RadToDeg(p.Azimuth),
		Latitude:  RadToDeg(p.Latitude),
		Longitude: RadToDeg(p.Longitude),
	}
}

// Satellite is the tracked object: its identity, the TLE it was built from
// and the most recently computed state.
type Satellite struct {
	ID  string
	TLE TLE

	State      Position
	ComputedAt time.Time // zero until the first successful cycle
}
