package kernel

import (
	"errors"
	"fmt"
	"math"

	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

const (
	// MinLatitude is the southernmost valid latitude in degrees.
	MinLatitude = -90.0
	// MaxLatitude is the northernmost valid latitude in degrees.
	MaxLatitude = 90.0
	// MinLongitude is the westernmost valid longitude in degrees.
	MinLongitude = -180.0
	// MaxLongitude is the easternmost valid longitude in degrees.
	MaxLongitude = 180.0
)

// ErrCoordinatesAreNotConstructed is returned when validating zero-value Coordinates.
var ErrCoordinatesAreNotConstructed = errs.NewValueIsRequiredError(
	"coordinates must be created via NewCoordinates")

// Coordinates is a WGS84 latitude/longitude pair. Both values are finite and
// within [-90,90] x [-180,180]. The zero value is invalid; note that (0,0)
// built through NewCoordinates is a valid point.
//
// Example:
//
//	nairobi, err := kernel.NewCoordinates(-1.286389, 36.817223)
//	if err != nil {
//	    // Handle validation error
//	}
type Coordinates struct { //nolint:recvcheck // pointer setters used during construction
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewCoordinates validates lat and lng and returns the pair.
//
// Returns:
//   - Coordinates: a valid pair
//   - error: ValueIsInvalidError for NaN/Inf, ValueIsOutOfRangeError for out of range values;
//     both coordinates are checked and their errors joined
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	c := Coordinates{guard: guard.NewConstructorGuard()}

	if err := errors.Join(c.setLat(lat), c.setLng(lng)); err != nil {
		return Coordinates{}, err
	}

	return c, nil
}

// Validate returns ErrCoordinatesAreNotConstructed for the zero value.
func (c Coordinates) Validate() error {
	return c.guard.Validate(ErrCoordinatesAreNotConstructed)
}

// Lat returns the latitude in degrees.
func (c Coordinates) Lat() float64 {
	return c.lat
}

// Lng returns the longitude in degrees.
func (c Coordinates) Lng() float64 {
	return c.lng
}

// IsEqual compares two constructed pairs.
func (c Coordinates) IsEqual(other Coordinates) (bool, error) {
	if err := errors.Join(c.Validate(), other.Validate()); err != nil {
		return false, err
	}
	return c.lat == other.lat && c.lng == other.lng, nil
}

// String returns "(lat,lng)" with four decimals, the precision the agent
// dashboard displays.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%.4f,%.4f)", c.lat, c.lng)
}

func (c *Coordinates) setLat(lat float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		return errs.NewValueIsInvalidErrorWithCause("lat", fmt.Errorf("%v is not finite", lat))
	}
	if lat < MinLatitude || lat > MaxLatitude {
		return errs.NewValueIsOutOfRangeError("lat", lat, MinLatitude, MaxLatitude)
	}
	c.lat = lat
	return nil
}

func (c *Coordinates) setLng(lng float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		return errs.NewValueIsInvalidErrorWithCause("lng", fmt.Errorf("%v is not finite", lng))
	}
	if lng < MinLongitude || lng > MaxLongitude {
		return errs.NewValueIsOutOfRangeError("lng", lng, MinLongitude, MaxLongitude)
	}
	c.lng = lng
	return nil
}
