package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/Guilhermevang/up2sat/model"
)

var (
	// ErrInvalidTLE indicates element lines that cannot be handed to SGP4.
	ErrInvalidTLE = errors.New("invalid TLE")
	// ErrCompute indicates propagation produced no usable state.
	ErrCompute = errors.New("propagation failed")
)

// OrbitModel computes a satellite's state for an observer at an instant.
// Implementations must be safe to call from the tracking goroutine while
// the tracker lock is held; they should not block.
type OrbitModel interface {
	Compute(obs model.Observer, at time.Time) (model.Position, error)
}

// OrbitFactory binds a resolved TLE to an OrbitModel.
type OrbitFactory func(tle model.TLE) (OrbitModel, error)

// SGP4Orbit propagates a TLE with go-satellite's SGP4 implementation.
type SGP4Orbit struct {
	sat satellite.Satellite
}

const (
	tleLineLength = 69
	degToRad      = math.Pi / 180
)

// NewSGP4Orbit validates the shape and every numeric field of both element
// lines, then initialises SGP4 with WGS72 constants.
func NewSGP4Orbit(tle model.TLE) (orbit OrbitModel, err error) {
	if err := checkShape(tle); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			orbit, err = nil, fmt.Errorf("%w: %s: %v", ErrInvalidTLE, tle.SatelliteID, r)
		}
	}()
	sat := satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72)
	return &SGP4Orbit{sat: sat}, nil
}

func checkShape(tle model.TLE) error {
	l1, l2 := tle.Line1, tle.Line2
	switch {
	case len(l1) != tleLineLength || len(l2) != tleLineLength:
		return fmt.Errorf("%w: element lines must be %d characters, got %d and %d",
			ErrInvalidTLE, tleLineLength, len(l1), len(l2))
	case !strings.HasPrefix(l1, "1 ") || !strings.HasPrefix(l2, "2 "):
		return fmt.Errorf("%w: element lines must start with \"1 \" and \"2 \"", ErrInvalidTLE)
	case l1[2:7] != l2[2:7]:
		return fmt.Errorf("%w: catalog numbers differ (%s vs %s)", ErrInvalidTLE, l1[2:7], l2[2:7])
	}
	return checkFields(l1, l2)
}

// checkFields parses every numeric field the way go-satellite's ParseTLE
// slices and normalises it. go-satellite exits the process on a parse
// failure, so each field must be known good before TLEToSat runs.
func checkFields(l1, l2 string) error {
	ints := []struct{ name, raw string }{
		{"catalog number", strings.TrimSpace(l1[2:7])},
		{"epoch year", l1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.Atoi(f.raw); err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidTLE, f.name, f.raw)
		}
	}

	floats := []struct{ name, raw string }{
		{"epoch day", l1[20:32]},
		{"mean motion derivative", strings.Replace(l1[33:43], " ", "", 2)},
		{"mean motion second derivative", impliedDecimal(l1[44:52])},
		{"bstar", impliedDecimal(l1[53:61])},
		{"inclination", strings.Replace(l2[8:16], " ", "", 2)},
		{"right ascension", strings.Replace(l2[17:25], " ", "", 2)},
		{"eccentricity", "." + l2[26:33]},
		{"argument of perigee", strings.Replace(l2[34:42], " ", "", 2)},
		{"mean anomaly", strings.Replace(l2[43:51], " ", "", 2)},
		{"mean motion", strings.Replace(l2[52:63], " ", "", 2)},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.raw, 64); err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidTLE, f.name, f.raw)
		}
	}
	return nil
}

// impliedDecimal rewrites an eight-column field such as " 10270-4" into
// ".10270e-4".
func impliedDecimal(field string) string {
	return strings.Replace(field[0:1]+"."+field[1:6]+"e"+field[6:8], " ", "", 2)
}

// Compute implements OrbitModel. Altitude and azimuth are the observer's
// look angles; latitude and longitude are the geodetic sub-satellite point.
// go-satellite works in whole seconds and kilometres.
func (o *SGP4Orbit) Compute(obs model.Observer, at time.Time) (pos model.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			pos, err = model.Position{}, fmt.Errorf("%w: %v", ErrCompute, r)
		}
	}()

	at = at.UTC()
	year, month, day := at.Date()
	hour, minute, sec := at.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, minute, sec)
	if !finite(posECI.X, posECI.Y, posECI.Z) {
		return model.Position{}, fmt.Errorf("%w: non-finite position at %s", ErrCompute, at.Format(time.RFC3339))
	}

	jd := satellite.JDay(year, int(month), day, hour, minute, sec)
	gmst := satellite.ThetaG_JD(jd)
	_, _, ground := satellite.ECIToLLA(posECI, gmst)

	observer := satellite.LatLong{
		Latitude:  obs.Latitude * degToRad,
		Longitude: obs.Longitude * degToRad,
	}
	const mToKm = 1.0 / 1000.0
	look := satellite.ECIToLookAngles(posECI, observer, float64(obs.Elevation)*mToKm, jd)

	pos = model.Position{
		Altitude:  look.El,
		Azimuth:   look.Az,
		Latitude:  ground.Latitude,
		Longitude: math.Remainder(ground.Longitude, 2*math.Pi),
	}
	if !finite(pos.Altitude, pos.Azimuth, pos.Latitude, pos.Longitude) {
		return model.Position{}, fmt.Errorf("%w: non-finite look angles at %s", ErrCompute, at.Format(time.RFC3339))
	}
	return pos, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
