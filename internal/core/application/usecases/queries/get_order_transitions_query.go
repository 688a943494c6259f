package queries

import (
	"errors"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/guard"
)

var ErrGetOrderTransitionsQueryIsNotConstructed = errors.New(
	"GetOrderTransitionsQuery must be created via NewGetOrderTransitionsQuery constructor",
)

// GetOrderTransitionsQuery retrieves the journal of status transitions the
// hub applied and broadcast for one order, oldest first.
type GetOrderTransitionsQuery struct {
	orderID kernel.ID

	guard guard.ConstructorGuard
}

// NewGetOrderTransitionsQuery creates a query for the given order.
func NewGetOrderTransitionsQuery(orderID kernel.ID) (GetOrderTransitionsQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderTransitionsQuery{}, err
	}

	return GetOrderTransitionsQuery{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderTransitionsQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderTransitionsQueryIsNotConstructed)
}

// OrderID returns the order whose journal is requested.
func (q GetOrderTransitionsQuery) OrderID() kernel.ID {
	return q.orderID
}

// GetOrderTransitionsQueryResponse is one journal entry.
type GetOrderTransitionsQueryResponse struct {
	OrderID      kernel.ID  `json:"orderId"`
	FromStatus   string     `json:"fromStatus"`
	ToStatus     string     `json:"toStatus"`
	ActorAgentID *kernel.ID `json:"actorAgentId,omitempty"`
	ObservedAt   time.Time  `json:"observedAt"`
	RecordedAt   time.Time  `json:"recordedAt"`
}
