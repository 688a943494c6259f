package agent

import (
	"errors"
	"fmt"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

// ErrSampleIsNotConstructed is returned for LocationSample values that were
// not built through NewLocationSample.
var ErrSampleIsNotConstructed = errors.New("LocationSample must be created via NewLocationSample constructor")

// Location is a position together with the logical time it was observed.
type Location struct {
	Coordinates kernel.Coordinates
	ObservedAt  time.Time
}

// IsNewerThan reports whether l was observed strictly after other. A nil
// other is older than any location.
func (l Location) IsNewerThan(other *Location) bool {
	return other == nil || l.ObservedAt.After(other.ObservedAt)
}

// LocationSample is one position report of an agent's device. Samples are
// ephemeral: they are forwarded to subscribers and optionally cached.
type LocationSample struct {
	agentID  kernel.ID
	location Location
	guard    guard.ConstructorGuard
}

// NewLocationSample validates and builds a sample.
//
// Returns errors for invalid agent ids, invalid coordinates and a zero
// observation time, joined together.
func NewLocationSample(agentID kernel.ID, lat, lng float64, observedAt time.Time) (LocationSample, error) {
	coords, coordsErr := kernel.NewCoordinates(lat, lng)

	var timeErr error
	if observedAt.IsZero() {
		timeErr = errs.NewValueIsRequiredError("observedAt")
	}

	if err := errors.Join(agentID.Validate(), coordsErr, timeErr); err != nil {
		return LocationSample{}, err
	}

	return LocationSample{
		agentID:  agentID,
		location: Location{Coordinates: coords, ObservedAt: observedAt.UTC()},
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the sample was built by NewLocationSample.
func (s LocationSample) Validate() error {
	return s.guard.Validate(ErrSampleIsNotConstructed)
}

// AgentID returns the reporting agent.
func (s LocationSample) AgentID() kernel.ID {
	return s.agentID
}

// Location returns the reported position and its observation time.
func (s LocationSample) Location() Location {
	return s.location
}

// Lat returns the reported latitude.
func (s LocationSample) Lat() float64 {
	return s.location.Coordinates.Lat()
}

// Lng returns the reported longitude.
func (s LocationSample) Lng() float64 {
	return s.location.Coordinates.Lng()
}

// ObservedAt returns the logical time of the sample.
func (s LocationSample) ObservedAt() time.Time {
	return s.location.ObservedAt
}

func (s LocationSample) String() string {
	return fmt.Sprintf("agent %s at %s", s.agentID, s.location.Coordinates)
}
