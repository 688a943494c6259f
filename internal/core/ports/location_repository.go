package ports

import (
	"context"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
)

// LocationRepository is the local cache of each agent's last known location.
type LocationRepository interface {
	// Save upserts sample when it is strictly newer than the cached one.
	// Returns false when an equal or newer location is already cached.
	Save(ctx context.Context, sample agent.LocationSample) (bool, error)

	// Get returns the cached location of an agent.
	// Returns an error wrapping errs.ErrObjectNotFound when nothing is cached.
	Get(ctx context.Context, agentID kernel.ID) (agent.LocationSample, error)

	// GetUnflushed returns up to limit cached locations not yet written back
	// to the REST backend, oldest first.
	GetUnflushed(ctx context.Context, limit int) ([]agent.LocationSample, error)

	// MarkFlushed records that sample was written back. A newer location
	// cached in the meantime stays unflushed.
	MarkFlushed(ctx context.Context, sample agent.LocationSample) error
}
