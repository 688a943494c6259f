package commands

import (
	"context"
	"fmt"
	"log/slog"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"
)

// RecordLocationCommandHandler decodes an agent's location sample,
// broadcasts it on the agent topic and caches it as the agent's last known
// position.
//
// Invalid samples are rejected before anything is broadcast. A failure to
// cache is logged and does not fail the command.
type RecordLocationCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	publisher  Publisher
	decoder    *codec.Decoder
	logger     *slog.Logger
}

// NewRecordLocationCommandHandler creates a handler for location updates.
// uowFactory may be nil when no location cache is configured.
func NewRecordLocationCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	publisher Publisher,
	decoder *codec.Decoder,
	logger *slog.Logger,
) RecordLocationCommandHandler {
	if decoder == nil {
		decoder = codec.NewDecoder()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return RecordLocationCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		decoder:    decoder,
		logger:     logger.With("component", "record_location"),
	}
}

// Handle processes the location update.
//
// Returns:
//   - error wrapping errs.ErrInvalidPayload for malformed or out of range samples
//   - error wrapping errs.ErrUnauthorized when the actor is not the agent in the sample
func (h RecordLocationCommandHandler) Handle(ctx context.Context, cmd RecordLocationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sample, err := h.decoder.DecodeLocation(cmd.Payload())
	if err != nil {
		metrics.GatewayInvalidPayloadTotal.WithLabelValues(string(codec.TypeLocationUpdate)).Inc()
		return err
	}

	if !cmd.Actor().IsAgentID(sample.AgentID()) {
		return errs.NewUnauthorizedError(fmt.Sprintf("location of agent %s", sample.AgentID()))
	}

	delivered := h.publisher.Publish(kernel.AgentTopic(sample.AgentID()), hub.LocationEvent(sample))
	h.logger.DebugContext(ctx, "location broadcast",
		"agent_id", sample.AgentID().Int64(),
		"subscribers", delivered,
	)

	if err = h.cache(ctx, sample); err != nil {
		h.logger.WarnContext(ctx, "failed to cache location",
			"agent_id", sample.AgentID().Int64(),
			"error", err,
		)
	}

	return nil
}

func (h RecordLocationCommandHandler) cache(ctx context.Context, sample agent.LocationSample) error {
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

	if _, err := uow.LocationRepository().Save(ctx, sample); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
