package ports

import (
	"context"

	"trackinghub/internal/core/domain/model/order"
)

// TransitionRepository is the append-only journal of status transitions the
// hub applied and broadcast.
type TransitionRepository interface {
	// Add appends an applied transition.
	Add(ctx context.Context, ev order.StatusEvent) error
}
