package order

import (
	"fmt"

	"trackinghub/internal/pkg/errs"
)

// Status represents the delivery state of an order.
//
// State transitions:
//
//	Processing ──> Assigned ──> OutForDelivery ──> Delivered
//	    │              │               │
//	    └──────────────┴───────────────┴──> Cancelled | Returned
//
// Delivered, Cancelled and Returned are terminal. Only
// Assigned -> OutForDelivery and OutForDelivery -> Delivered may be
// requested by a delivery agent; the other edges are applied by the
// assignment and cancellation collaborators and merely observed here.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Processing is the initial status; no agent is assigned yet.
	Processing

	// Assigned indicates an agent has been assigned to the order.
	Assigned

	// OutForDelivery indicates the agent has picked up the order.
	OutForDelivery

	// Delivered is the terminal success state.
	Delivered

	// Cancelled is a terminal side branch.
	Cancelled

	// Returned is a terminal side branch.
	Returned
)

// Group buckets statuses the way the agent dashboard filters them.
type Group string

const (
	GroupActive    Group = "active"
	GroupDelivered Group = "delivered"
	GroupClosed    Group = "closed"
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "unknown",
		Processing:     "processing",
		Assigned:       "assigned",
		OutForDelivery: "out_for_delivery",
		Delivered:      "delivered",
		Cancelled:      "cancelled",
		Returned:       "returned",
	}
}

// getSuccessors returns the legal next statuses of every non-terminal status.
func getSuccessors() map[Status][]Status {
	//nolint:exhaustive // terminal and unknown statuses have no successors
	return map[Status][]Status{
		Processing:     {Assigned, Cancelled, Returned},
		Assigned:       {OutForDelivery, Cancelled, Returned},
		OutForDelivery: {Delivered, Cancelled, Returned},
	}
}

// getAgentTransitions returns the single edge an agent may request from
// each status, mirroring the "Start delivery" and "Mark delivered" actions.
func getAgentTransitions() map[Status]Status {
	//nolint:exhaustive // agents can act only on these two statuses
	return map[Status]Status{
		Assigned:       OutForDelivery,
		OutForDelivery: Delivered,
	}
}

// ParseStatus converts the wire name ("out_for_delivery") into a Status.
//
// Returns a ValueIsInvalidError for unknown names, including "unknown".
func ParseStatus(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if name == s && status != Unknown {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks that s is one of the defined statuses other than Unknown.
func (s Status) Validate() error {
	if _, ok := getStatusStrings()[s]; !ok || s == Unknown {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, or "unknown" for invalid values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled || s == Returned
}

// RequiresAgent reports whether an order in status s must have an agent.
// Cancelled and Returned may be reached from Processing, so they do not.
func (s Status) RequiresAgent() bool {
	return s == Assigned || s == OutForDelivery || s == Delivered
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range getSuccessors()[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Successors returns the legal next statuses of s in declaration order.
func (s Status) Successors() []Status {
	successors := getSuccessors()[s]
	out := make([]Status, len(successors))
	copy(out, successors)
	return out
}

// Group returns the dashboard bucket of s.
func (s Status) Group() Group {
	switch s {
	case Delivered:
		return GroupDelivered
	case Cancelled, Returned:
		return GroupClosed
	default:
		return GroupActive
	}
}

// NextAgentStatus returns the status an agent moves an order to from
// current, and false when the agent has no action available.
//
// Example:
//
//	next, ok := order.NextAgentStatus(order.Assigned)
//	// next == order.OutForDelivery, ok == true
func NextAgentStatus(current Status) (Status, bool) {
	next, ok := getAgentTransitions()[current]
	return next, ok
}

// AgentMayRequest reports whether an agent actor may request from -> to.
func AgentMayRequest(from, to Status) bool {
	next, ok := NextAgentStatus(from)
	return ok && next == to
}
