package model

import "time"

// Observer is a ground location relative to which look angles are computed.
// Latitude and longitude are in degrees, elevation in metres above the
// ellipsoid. Epoch marks when the location was last set.
type Observer struct {
	Latitude  float64
	Longitude float64
	Elevation int
	Epoch     time.Time
}
