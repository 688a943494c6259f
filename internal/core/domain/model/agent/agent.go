package agent

import (
	"errors"
	"fmt"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"
)

// ErrAgentIsNotConstructed is returned when an Agent instance was not created
// through NewAgent.
var ErrAgentIsNotConstructed = errors.New("Agent must be created via NewAgent constructor")

// Agent is a delivery agent as seen by the tracking layer. Its profile is
// owned by the REST backend; this layer only keeps the last known location
// current from the agent's own session.
type Agent struct {
	id                kernel.ID
	name              string
	phone             string
	isAvailable       bool
	lastKnownLocation *Location

	isConstructed bool
}

// NewAgent builds an agent from profile data.
//
// Parameters:
//   - id: agent identifier
//   - name, phone: profile fields, may be empty when the backend omits them
//   - isAvailable: whether the agent accepts new assignments
//   - lastKnown: last confirmed location, nil when unknown
func NewAgent(id kernel.ID, name, phone string, isAvailable bool, lastKnown *Location) (*Agent, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		id:            id,
		name:          name,
		phone:         phone,
		isAvailable:   isAvailable,
		isConstructed: true,
	}

	if lastKnown != nil {
		if err := lastKnown.Coordinates.Validate(); err != nil {
			return nil, err
		}
		loc := *lastKnown
		a.lastKnownLocation = &loc
	}

	return a, nil
}

// Validate ensures the agent was built by NewAgent.
func (a *Agent) Validate() error {
	if a == nil || !a.isConstructed {
		return ErrAgentIsNotConstructed
	}
	return nil
}

// ID returns the agent identifier.
func (a *Agent) ID() kernel.ID {
	return a.id
}

// Name returns the agent's display name.
func (a *Agent) Name() string {
	return a.name
}

// Phone returns the agent's contact number.
func (a *Agent) Phone() string {
	return a.phone
}

// IsAvailable reports whether the agent accepts new assignments.
func (a *Agent) IsAvailable() bool {
	return a.isAvailable
}

// LastKnownLocation returns a copy of the last known location, nil when unknown.
func (a *Agent) LastKnownLocation() *Location {
	if a.lastKnownLocation == nil {
		return nil
	}
	loc := *a.lastKnownLocation
	return &loc
}

// ObserveLocation overwrites the last known location with sample when the
// sample is strictly newer.
//
// Returns:
//   - true when the location was replaced
//   - false when the sample is older than or as old as the current one
//   - error when the sample is invalid or belongs to another agent
func (a *Agent) ObserveLocation(sample LocationSample) (bool, error) {
	if err := errors.Join(a.Validate(), sample.Validate()); err != nil {
		return false, err
	}
	if sample.AgentID() != a.id {
		return false, errs.NewValueIsInvalidErrorWithCause("agentId",
			fmt.Errorf("sample of agent %s observed by agent %s", sample.AgentID(), a.id))
	}

	loc := sample.Location()
	if !loc.IsNewerThan(a.lastKnownLocation) {
		return false, nil
	}

	a.lastKnownLocation = &loc
	return true, nil
}
