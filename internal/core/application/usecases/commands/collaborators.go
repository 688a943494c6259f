// Package commands contains the operations through which delivery agents
// change tracking state: location updates, status requests and the
// write-back of cached locations to the REST backend.
// All commands follow a consistent pattern: validation, authorization
// against the actor's credential, persistence, then broadcast.
package commands

import (
	"context"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"
)

// Collaborators of the command handlers, narrowed to what each one calls.
type (
	// Publisher fans an event out to the subscribers of a topic and
	// returns how many connections it was routed to.
	Publisher interface {
		Publish(topic kernel.Topic, ev hub.Event) int
	}

	// OrderStatusClient reads and persists order status on the REST backend.
	OrderStatusClient interface {
		GetOrderTracking(ctx context.Context, token string, orderID kernel.ID) (ports.OrderTracking, error)
		UpdateOrderStatus(ctx context.Context, token string, orderID kernel.ID, status order.Status) error
	}

	// LocationWriter persists an agent's last known location on the REST backend.
	LocationWriter interface {
		UpdateAgentLocation(ctx context.Context, token string, sample agent.LocationSample) error
	}
)
