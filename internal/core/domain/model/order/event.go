package order

import (
	"errors"
	"fmt"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

// ErrStatusEventIsNotConstructed is returned for StatusEvent values that
// were not built through NewStatusEvent.
var ErrStatusEventIsNotConstructed = errors.New("StatusEvent must be created via NewStatusEvent constructor")

// StatusEvent is an ephemeral record of a delivery status change. It is
// applied only where From matches the holder's current status.
type StatusEvent struct {
	OrderID      kernel.ID
	From         Status
	To           Status
	ActorAgentID *kernel.ID
	ObservedAt   time.Time

	guard guard.ConstructorGuard
}

// NewStatusEvent validates and builds a status event.
//
// Parameters:
//   - orderID: the order the event belongs to
//   - from, to: the expected current status and the requested next status
//   - actorAgentID: the agent that requested the change, nil for collaborators
//   - observedAt: logical time of the change, must be set
func NewStatusEvent(orderID kernel.ID, from, to Status, actorAgentID *kernel.ID, observedAt time.Time) (StatusEvent, error) {
	var actorErr error
	if actorAgentID != nil {
		actorErr = actorAgentID.Validate()
	}

	var timeErr error
	if observedAt.IsZero() {
		timeErr = errs.NewValueIsRequiredError("observedAt")
	}

	if err := errors.Join(orderID.Validate(), from.Validate(), to.Validate(), actorErr, timeErr); err != nil {
		return StatusEvent{}, err
	}

	return StatusEvent{
		OrderID:      orderID,
		From:         from,
		To:           to,
		ActorAgentID: actorAgentID,
		ObservedAt:   observedAt,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the event was built by NewStatusEvent.
func (e StatusEvent) Validate() error {
	return e.guard.Validate(ErrStatusEventIsNotConstructed)
}

func (e StatusEvent) String() string {
	return fmt.Sprintf("order %s: %s -> %s", e.OrderID, e.From, e.To)
}

// RejectReason explains why Apply refused an event.
type RejectReason string

const (
	// ReasonStale means the event's From no longer matches the current status.
	ReasonStale RejectReason = "stale"
	// ReasonTerminal means the current status admits no transition.
	ReasonTerminal RejectReason = "terminal"
	// ReasonIllegal means To is not a legal successor of the current status.
	ReasonIllegal RejectReason = "illegal"
	// ReasonForbidden means the actor may not request this transition.
	ReasonForbidden RejectReason = "forbidden"
)

// RejectedError is the Rejected outcome of the status machine.
//
// A stale rejection unwraps to errs.ErrStaleTransition so holders of a view
// can re-fetch; every other reason unwraps to errs.ErrInvalidPayload.
type RejectedError struct {
	Reason  RejectReason
	Current Status
	Event   StatusEvent
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transition rejected (%s): current status is %s, event is %s -> %s",
		e.Reason, e.Current, e.Event.From, e.Event.To)
}

func (e *RejectedError) Unwrap() error {
	if e.Reason == ReasonStale {
		return errs.ErrStaleTransition
	}
	return errs.ErrInvalidPayload
}

// Apply decides whether ev may move an order from current.
//
// Rejects, in this order, when:
//   - ev.From differs from current (ReasonStale)
//   - current is terminal (ReasonTerminal)
//   - ev.To is not a legal successor of current (ReasonIllegal)
//
// Returns the next status on success. Apply has no side effects; callers
// persist and broadcast.
//
// Example:
//
//	next, err := order.Apply(order.Assigned, ev)
//	if errors.Is(err, errs.ErrStaleTransition) {
//	    // re-fetch the snapshot
//	}
func Apply(current Status, ev StatusEvent) (Status, error) {
	if err := ev.Validate(); err != nil {
		return current, err
	}

	if ev.From != current {
		return current, &RejectedError{Reason: ReasonStale, Current: current, Event: ev}
	}

	if current.IsTerminal() {
		return current, &RejectedError{Reason: ReasonTerminal, Current: current, Event: ev}
	}

	if !current.CanTransitionTo(ev.To) {
		return current, &RejectedError{Reason: ReasonIllegal, Current: current, Event: ev}
	}

	return ev.To, nil
}

// ApplyAgentRequest is Apply restricted to the transitions an agent may
// request directly.
func ApplyAgentRequest(current Status, ev StatusEvent) (Status, error) {
	next, err := Apply(current, ev)
	if err != nil {
		return current, err
	}

	if ev.ActorAgentID == nil || !AgentMayRequest(ev.From, ev.To) {
		return current, &RejectedError{Reason: ReasonForbidden, Current: current, Event: ev}
	}

	return next, nil
}
