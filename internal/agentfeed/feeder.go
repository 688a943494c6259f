// Package agentfeed turns an agent device's geolocation fixes into
// locationUpdate messages on the agent's session.
package agentfeed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/geo"
	"trackinghub/internal/pkg/errs"
)

// Emitter sends messages over the agent's push channel. session.Manager
// implements it.
type Emitter interface {
	Emit(ctx context.Context, msg codec.Message) error
}

// Stats counts what happened to the fixes a Feeder saw.
type Stats struct {
	Sent    int64
	Invalid int64
	Stale   int64
	Failed  int64
}

// Feeder samples a geolocation provider and emits each valid fix. Fixes
// are never queued: a fix that cannot be sent is dropped and the next one
// supersedes it.
type Feeder struct {
	agentID  kernel.ID
	provider geo.Provider
	emitter  Emitter
	opts     geo.Options
	now      func() time.Time
	logger   *slog.Logger

	sent, invalid, stale, failed atomic.Int64
}

// NewFeeder creates a feeder for agentID.
func NewFeeder(agentID kernel.ID, provider geo.Provider, emitter Emitter, opts geo.Options, logger *slog.Logger) (*Feeder, error) {
	if err := agentID.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errs.NewValueIsRequiredError("provider")
	}
	if emitter == nil {
		return nil, errs.NewValueIsRequiredError("emitter")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Feeder{
		agentID:  agentID,
		provider: provider,
		emitter:  emitter,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With("component", "AgentFeeder", "agent", agentID.String()),
	}, nil
}

// Run watches the provider until ctx is cancelled or the provider closes
// its stream.
func (f *Feeder) Run(ctx context.Context) error {
	fixes, err := f.provider.Watch(ctx, f.opts)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fix, ok := <-fixes:
			if !ok {
				return nil
			}
			f.handle(ctx, fix)
		}
	}
}

// RequestStatus asks the hub to move orderID to the agent's next status.
func (f *Feeder) RequestStatus(ctx context.Context, orderID kernel.ID, to order.Status) error {
	payload, err := codec.EncodeStatusRequest(codec.StatusRequest{OrderID: orderID, ToStatus: to})
	if err != nil {
		return err
	}
	return f.emitter.Emit(ctx, codec.Message{
		Type:    codec.TypeStatusUpdate,
		Topic:   kernel.OrderTopic(orderID).String(),
		Payload: payload,
	})
}

// Stats returns a snapshot of the counters.
func (f *Feeder) Stats() Stats {
	return Stats{
		Sent:    f.sent.Load(),
		Invalid: f.invalid.Load(),
		Stale:   f.stale.Load(),
		Failed:  f.failed.Load(),
	}
}

func (f *Feeder) handle(ctx context.Context, fix geo.Fix) {
	if fix.Err != nil {
		f.logger.WarnContext(ctx, "geolocation error", "error", fix.Err)
		return
	}

	if f.opts.MaxAge > 0 && f.now().Sub(fix.ObservedAt) > f.opts.MaxAge {
		f.stale.Add(1)
		f.logger.DebugContext(ctx, "stale fix dropped", "observedAt", fix.ObservedAt)
		return
	}

	sample, err := agent.NewLocationSample(f.agentID, fix.Lat, fix.Lng, fix.ObservedAt)
	if err != nil {
		f.invalid.Add(1)
		f.logger.WarnContext(ctx, "invalid fix dropped", "error", err)
		return
	}

	payload, err := codec.EncodeLocation(sample)
	if err != nil {
		f.invalid.Add(1)
		return
	}

	err = f.emitter.Emit(ctx, codec.Message{
		Type:    codec.TypeLocationUpdate,
		Topic:   kernel.AgentTopic(f.agentID).String(),
		Payload: payload,
	})
	if err != nil {
		f.failed.Add(1)
		f.logger.InfoContext(ctx, "fix not sent", "error", err)
		return
	}
	f.sent.Add(1)
}
