package tracking

import (
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
)

// View is what a subscriber renders for an order. Values returned by the
// Reconciler are copies.
type View struct {
	OrderID        kernel.ID
	Status         order.Status
	AgentID        *kernel.ID
	AgentName      string
	AgentPhone     string
	AgentLocation  *agent.Location
	PickupAddress  string
	DropoffAddress string
	// SnapshotAt is when the last snapshot was applied.
	SnapshotAt time.Time
	// Reconnecting is set while the push channel is down; the view may be stale.
	Reconnecting bool
	// Seeded is false until the first snapshot was applied.
	Seeded bool
	// Denied is set once the server refused one of the view's topics.
	// Pushes for that topic no longer arrive.
	Denied bool
}

func (v View) clone() View {
	out := v
	if v.AgentID != nil {
		id := *v.AgentID
		out.AgentID = &id
	}
	if v.AgentLocation != nil {
		loc := *v.AgentLocation
		out.AgentLocation = &loc
	}
	return out
}

// Group is the dashboard bucket of the current status.
func (v View) Group() order.Group {
	return v.Status.Group()
}
