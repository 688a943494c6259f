package queries

import (
	"context"
	"database/sql"

	"trackinghub/internal/core/domain/model/kernel"

	"gorm.io/gorm"
)

// GetOrderTransitionsQueryHandler reads the transition journal.
//
// Example:
//
//	handler := NewGetOrderTransitionsQueryHandler(db)
//	query, _ := NewGetOrderTransitionsQuery(42)
//
//	transitions, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return err
//	}
//	for _, tr := range transitions {
//	    fmt.Printf("%s -> %s at %s\n", tr.FromStatus, tr.ToStatus, tr.ObservedAt)
//	}
type GetOrderTransitionsQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderTransitionsQueryHandler creates a handler reading through db.
func NewGetOrderTransitionsQueryHandler(db *gorm.DB) GetOrderTransitionsQueryHandler {
	return GetOrderTransitionsQueryHandler{db: db}
}

// Handle returns the journal entries of the order ordered by observation
// time. An order without entries yields an empty slice.
func (h GetOrderTransitionsQueryHandler) Handle(
	ctx context.Context,
	query GetOrderTransitionsQuery,
) ([]GetOrderTransitionsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	transitions := make([]GetOrderTransitionsQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			order_id,
			from_status,
			to_status,
			actor_agent_id,
			observed_at,
			recorded_at
		FROM order_transitions
		WHERE order_id = ?
		ORDER BY observed_at, id
	`, query.OrderID().Int64()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tr      GetOrderTransitionsQueryResponse
			orderID int64
			actor   sql.NullInt64
		)

		err = rows.Scan(
			&orderID,
			&tr.FromStatus,
			&tr.ToStatus,
			&actor,
			&tr.ObservedAt,
			&tr.RecordedAt,
		)
		if err != nil {
			return nil, err
		}

		tr.OrderID = kernel.ID(orderID)
		if actor.Valid {
			id := kernel.ID(actor.Int64)
			tr.ActorAgentID = &id
		}
		tr.ObservedAt = tr.ObservedAt.UTC()
		tr.RecordedAt = tr.RecordedAt.UTC()

		transitions = append(transitions, tr)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return transitions, nil
}
