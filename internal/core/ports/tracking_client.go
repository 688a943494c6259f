package ports

import (
	"context"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
)

// OrderTracking is the ground truth snapshot of an order and the agent
// carrying it, as served by the REST backend.
type OrderTracking struct {
	Order *order.Order
	// Agent is nil while the order has no assigned agent.
	Agent *agent.Agent
}

// TrackingClient is the REST backend that owns orders and agents.
// Every call is made on behalf of the holder of token.
//
// Error contract:
//   - 401/403: error wrapping errs.ErrUnauthorized
//   - 404: error wrapping errs.ErrObjectNotFound
//   - any other failure: error wrapping errs.ErrSnapshotFetchFailed
type TrackingClient interface {
	// GetOrderTracking fetches the order snapshot with its agent's last location.
	GetOrderTracking(ctx context.Context, token string, orderID kernel.ID) (OrderTracking, error)

	// GetAgentStatus fetches an agent profile with its last location.
	// A successful call also proves the token may observe that agent.
	GetAgentStatus(ctx context.Context, token string, agentID kernel.ID) (*agent.Agent, error)

	// UpdateOrderStatus persists a delivery status change.
	UpdateOrderStatus(ctx context.Context, token string, orderID kernel.ID, status order.Status) error

	// UpdateAgentLocation persists an agent's last known location.
	UpdateAgentLocation(ctx context.Context, token string, sample agent.LocationSample) error
}
