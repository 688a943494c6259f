package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"
)

// UpdateDeliveryStatusCommandHandler validates an agent's status request
// against the order snapshot, persists it on the REST backend, journals it
// and broadcasts the applied transition on the order topic.
//
// Requests for the same order are serialized, so two concurrent requests
// cannot both pass the check against the same snapshot.
//
// Example:
//
//	handler := NewUpdateDeliveryStatusCommandHandler(client, uowFactory, hub, logger)
//	cmd, _ := NewUpdateDeliveryStatusCommand(cred, []byte(`{"orderId":42,"toStatus":"out_for_delivery"}`))
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    // nothing was persisted or broadcast
//	}
type UpdateDeliveryStatusCommandHandler struct {
	client     OrderStatusClient
	uowFactory ports.UnitOfWorkFactory
	publisher  Publisher
	locks      *keyedMutex
	now        func() time.Time
	logger     *slog.Logger
}

// NewUpdateDeliveryStatusCommandHandler creates a handler for status
// requests. uowFactory may be nil when no journal is configured.
func NewUpdateDeliveryStatusCommandHandler(
	client OrderStatusClient,
	uowFactory ports.UnitOfWorkFactory,
	publisher Publisher,
	logger *slog.Logger,
) *UpdateDeliveryStatusCommandHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UpdateDeliveryStatusCommandHandler{
		client:     client,
		uowFactory: uowFactory,
		publisher:  publisher,
		locks:      newKeyedMutex(),
		now:        time.Now,
		logger:     logger.With("component", "update_delivery_status"),
	}
}

// Handle processes the status request.
//
// Returns:
//   - error wrapping errs.ErrInvalidPayload for malformed requests and for
//     transitions the agent may not request from the current status
//   - error wrapping errs.ErrUnauthorized when the actor is not the agent
//     assigned to the order
//   - the REST client's error when the snapshot cannot be read or the
//     change cannot be persisted
func (h *UpdateDeliveryStatusCommandHandler) Handle(ctx context.Context, cmd UpdateDeliveryStatusCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.GatewayStatusRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := codec.DecodeStatusRequest(cmd.Payload())
	if err != nil {
		metrics.GatewayInvalidPayloadTotal.WithLabelValues(string(codec.TypeStatusUpdate)).Inc()
		return err
	}

	actor := cmd.Actor()
	if !actor.IsAgent() {
		return errs.NewUnauthorizedError("status requests are reserved to delivery agents")
	}

	unlock := h.locks.lock(req.OrderID)
	defer unlock()

	snapshot, err := h.client.GetOrderTracking(ctx, actor.Token, req.OrderID)
	if err != nil {
		return err
	}
	if snapshot.Order == nil {
		return errs.NewSnapshotFetchFailedError(fmt.Sprintf("order %s", req.OrderID), errs.NewValueIsRequiredError("order"))
	}

	current := snapshot.Order.Status()
	assigned := snapshot.Order.Agent()
	if assigned == nil || !actor.IsAgentID(*assigned) {
		return errs.NewUnauthorizedError(fmt.Sprintf("order %s is not assigned to agent %s", req.OrderID, actor.AgentID))
	}

	ev, err := order.NewStatusEvent(req.OrderID, current, req.ToStatus, actor.AgentID, h.now().UTC())
	if err != nil {
		return errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}

	if _, err = order.ApplyAgentRequest(current, ev); err != nil {
		h.logger.InfoContext(ctx, "status request rejected",
			"order_id", req.OrderID.Int64(),
			"agent_id", actor.AgentID.Int64(),
			"error", err,
		)
		return err
	}

	if err = h.client.UpdateOrderStatus(ctx, actor.Token, req.OrderID, ev.To); err != nil {
		return err
	}

	if err = h.journal(ctx, ev); err != nil {
		h.logger.WarnContext(ctx, "failed to journal transition",
			"order_id", req.OrderID.Int64(),
			"error", err,
		)
	}

	delivered := h.publisher.Publish(kernel.OrderTopic(req.OrderID), hub.StatusEvent(ev))
	h.logger.InfoContext(ctx, "status updated",
		"order_id", req.OrderID.Int64(),
		"from", ev.From.String(),
		"to", ev.To.String(),
		"agent_id", actor.AgentID.Int64(),
		"subscribers", delivered,
	)

	return nil
}

func (h *UpdateDeliveryStatusCommandHandler) journal(ctx context.Context, ev order.StatusEvent) error {
	if h.uowFactory == nil {
		return nil
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.TransitionRepository().Add(ctx, ev); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
