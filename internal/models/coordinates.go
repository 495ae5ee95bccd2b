package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is not a finite value
// within the geographic range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinates represents a geographical point defined by its latitude and longitude (WGS84).
type Coordinates struct {
	Latitude  float64 // Latitude of the geographical point, [-90, 90].
	Longitude float64 // Longitude of the geographical point, [-180, 180].
}

// Validate reports whether the coordinates can be passed to a lookup.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}

	return nil
}
