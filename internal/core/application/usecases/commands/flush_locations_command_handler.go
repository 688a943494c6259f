package commands

import (
	"context"
	"errors"
	"log/slog"

	"trackinghub/internal/core/ports"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"
)

// FlushLocationsCommandHandler persists cached agent locations on the REST
// backend using the service credential. A row is marked flushed only after
// the backend accepted it; rows replaced by a newer sample in the meantime
// stay pending for the next run.
type FlushLocationsCommandHandler struct {
	uowFactory   ports.UnitOfWorkFactory
	writer       LocationWriter
	serviceToken string
	logger       *slog.Logger
}

// NewFlushLocationsCommandHandler creates a handler for location write-back.
func NewFlushLocationsCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	writer LocationWriter,
	serviceToken string,
	logger *slog.Logger,
) FlushLocationsCommandHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return FlushLocationsCommandHandler{
		uowFactory:   uowFactory,
		writer:       writer,
		serviceToken: serviceToken,
		logger:       logger.With("component", "flush_locations"),
	}
}

// Handle writes back one batch. Failed rows are logged and joined into the
// returned error; an unauthorized service token stops the batch.
func (h FlushLocationsCommandHandler) Handle(ctx context.Context, cmd FlushLocationsCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	repo := h.uowFactory.Create().LocationRepository()

	pending, err := repo.GetUnflushed(ctx, cmd.BatchSize())
	if err != nil {
		return err
	}

	var failures []error
	flushed := 0
	for _, sample := range pending {
		if err = h.writer.UpdateAgentLocation(ctx, h.serviceToken, sample); err != nil {
			if errors.Is(err, errs.ErrUnauthorized) {
				return err
			}
			h.logger.WarnContext(ctx, "failed to flush location",
				"agent_id", sample.AgentID().Int64(),
				"error", err,
			)
			failures = append(failures, err)
			continue
		}

		if err = repo.MarkFlushed(ctx, sample); err != nil {
			failures = append(failures, err)
			continue
		}

		flushed++
		metrics.LocationsFlushedTotal.Inc()
	}

	if flushed > 0 {
		h.logger.InfoContext(ctx, "locations flushed", "count", flushed, "pending", len(pending))
	}

	return errors.Join(failures...)
}
