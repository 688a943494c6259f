package order

import (
	"errors"
	"fmt"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"
)

// ErrOrderIsNotConstructed is returned when an Order instance was not created through
// RestoreOrder.
var ErrOrderIsNotConstructed = errors.New("Order must be created via RestoreOrder constructor")

// Order is the tracking projection of a marketplace order: its delivery
// status, the addresses between which it travels and the agent carrying it.
// Orders are created by the external ordering collaborator and reach this
// layer only through snapshots, hence the single RestoreOrder constructor.
//
// Order follows these invariants:
//   - Must have a valid identifier and a valid status
//   - deliveryAgentID is non-nil whenever status is not Processing
//   - Status and agent change only through Apply
type Order struct {
	id             kernel.ID
	status         Status
	pickupAddress  string
	dropoffAddress string
	agentID        *kernel.ID
	updatedAt      time.Time

	isConstructed bool
}

// RestoreOrder rebuilds an order from a snapshot.
//
// Parameters:
//   - id: order identifier
//   - status: current delivery status
//   - pickupAddress, dropoffAddress: free-form addresses, may be empty
//   - agentID: assigned agent, nil only while the order is Processing
//   - updatedAt: time of the last change known to the backend
//
// Returns:
//   - *Order: the restored order
//   - error: validation errors joined together
func RestoreOrder(
	id kernel.ID,
	status Status,
	pickupAddress, dropoffAddress string,
	agentID *kernel.ID,
	updatedAt time.Time,
) (*Order, error) {
	o := &Order{
		pickupAddress:  pickupAddress,
		dropoffAddress: dropoffAddress,
		updatedAt:      updatedAt,
		isConstructed:  true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setStatus(status),
		o.setAgent(agentID),
	); err != nil {
		return nil, err
	}

	if err := o.checkAgentInvariant(); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the order was built by RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// ID returns the order identifier.
func (o *Order) ID() kernel.ID {
	return o.id
}

// Status returns the current delivery status.
func (o *Order) Status() Status {
	return o.status
}

// PickupAddress returns where the agent collects the order.
func (o *Order) PickupAddress() string {
	return o.pickupAddress
}

// DropoffAddress returns where the order is delivered.
func (o *Order) DropoffAddress() string {
	return o.dropoffAddress
}

// Agent returns the assigned agent, nil while unassigned.
func (o *Order) Agent() *kernel.ID {
	if o.agentID == nil {
		return nil
	}
	id := *o.agentID
	return &id
}

// UpdatedAt returns the time of the last applied change.
func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// Apply runs ev through the status machine and, on success, moves the
// order to ev.To.
//
// A transition into a status that requires an agent while no agent is
// known is reported as stale: the agent assignment must come from a
// snapshot, it is never inferred from the event.
func (o *Order) Apply(ev StatusEvent) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if ev.OrderID != o.id {
		return errs.NewValueIsInvalidErrorWithCause("orderId",
			fmt.Errorf("event for order %s applied to order %s", ev.OrderID, o.id))
	}

	next, err := Apply(o.status, ev)
	if err != nil {
		return err
	}

	if next.RequiresAgent() && o.agentID == nil {
		return &RejectedError{Reason: ReasonStale, Current: o.status, Event: ev}
	}

	o.status = next
	if ev.ObservedAt.After(o.updatedAt) {
		o.updatedAt = ev.ObservedAt
	}
	return nil
}

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	clone := *o
	clone.agentID = o.Agent()
	return &clone
}

func (o *Order) setID(id kernel.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setAgent(agentID *kernel.ID) error {
	if agentID == nil {
		return nil
	}
	if err := agentID.Validate(); err != nil {
		return err
	}
	id := *agentID
	o.agentID = &id
	return nil
}

func (o *Order) checkAgentInvariant() error {
	if o.status.RequiresAgent() && o.agentID == nil {
		return errs.NewValueIsInvalidErrorWithCause(
			"deliveryAgentId",
			fmt.Errorf("%s orders must have an assigned agent", o.status),
		)
	}
	return nil
}
