package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"

	"golang.org/x/sync/singleflight"
)

const snapshotKey = "snapshot"

// DefaultFetchTimeout bounds one shared snapshot fetch.
const DefaultFetchTimeout = 15 * time.Second

// Reconciler owns the view of one order for one subscription.
// It is safe for concurrent use.
type Reconciler struct {
	orderID kernel.ID
	fetcher SnapshotFetcher
	flight  singleflight.Group

	mu      sync.Mutex
	order   *order.Order
	view    View
	version uint64

	notifyMu sync.Mutex
	notified uint64
	onChange func(View)

	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithOnChange registers a callback invoked with every new view. Calls are
// serialized and never carry an older view than a previous call. The
// callback may read the Reconciler but must not block for long.
func WithOnChange(fn func(View)) Option {
	return func(r *Reconciler) {
		r.onChange = fn
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFetchTimeout bounds each snapshot fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// WithClock sets the clock stamping SnapshotAt.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates an unseeded reconciler for orderID.
func NewReconciler(orderID kernel.ID, fetcher SnapshotFetcher, opts ...Option) (*Reconciler, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errs.NewValueIsRequiredError("fetcher")
	}

	r := &Reconciler{
		orderID: orderID,
		fetcher: fetcher,
		view:    View{OrderID: orderID},

		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "Reconciler", "order", orderID.String())
	return r, nil
}

// OrderID returns the order this reconciler tracks.
func (r *Reconciler) OrderID() kernel.ID {
	return r.orderID
}

// View returns a copy of the current view.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.clone()
}

// Topics returns the topics this view needs: the order topic, plus the
// agent topic once an agent is known.
func (r *Reconciler) Topics() []kernel.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := []kernel.Topic{kernel.OrderTopic(r.orderID)}
	if r.view.AgentID != nil {
		topics = append(topics, kernel.AgentTopic(*r.view.AgentID))
	}
	return topics
}

// Resync fetches the snapshot and replaces the view with it. Concurrent
// calls share one fetch, which is not tied to any single caller's
// cancellation. On failure the last good view is kept.
func (r *Reconciler) Resync(ctx context.Context) error {
	ch := r.flight.DoChan(snapshotKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		snap, err := r.fetcher.FetchSnapshot(fetchCtx, r.orderID)
		if err != nil {
			return nil, err
		}
		return nil, r.applySnapshot(snap)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			r.logger.WarnContext(ctx, "snapshot fetch failed", "shared", res.Shared, "error", res.Err)
			return classifyFetchError(r.orderID, res.Err)
		}
		return nil
	}
}

// ApplyStatus merges a status event into the view.
//
// Outcomes:
//   - fromStatus matches: the view advances
//   - toStatus equals the current status: duplicate, ignored
//   - any other mismatch: the event is discarded and the snapshot is
//     fetched again; the error of that fetch is returned
//   - fromStatus matches but the transition is illegal: the RejectedError
//     is returned and the view is unchanged
func (r *Reconciler) ApplyStatus(ctx context.Context, ev order.StatusEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.OrderID != r.orderID {
		return errs.NewInvalidPayloadErrorWithCause("statusUpdate",
			fmt.Errorf("event of order %s routed to order %s", ev.OrderID, r.orderID))
	}

	r.mu.Lock()
	if r.order == nil {
		r.mu.Unlock()
		return r.Resync(ctx)
	}
	if ev.To == r.order.Status() {
		r.mu.Unlock()
		return nil
	}

	next := r.order.Clone()
	err := next.Apply(ev)
	if err == nil {
		r.order = next
		r.view.Status = next.Status()
		r.version++
		r.mu.Unlock()
		r.notify()
		return nil
	}
	r.mu.Unlock()

	if errors.Is(err, errs.ErrStaleTransition) {
		r.logger.InfoContext(ctx, "stale status event, re-fetching", "event", ev.String())
		return r.Resync(ctx)
	}
	return err
}

// ApplyLocation merges a location sample. It is accepted only for the
// view's agent and only when strictly newer than the current location.
func (r *Reconciler) ApplyLocation(sample agent.LocationSample) bool {
	if sample.Validate() != nil {
		return false
	}

	r.mu.Lock()
	if r.view.AgentID == nil || *r.view.AgentID != sample.AgentID() {
		r.mu.Unlock()
		return false
	}
	loc := sample.Location()
	if !loc.IsNewerThan(r.view.AgentLocation) {
		r.mu.Unlock()
		return false
	}
	r.view.AgentLocation = &loc
	r.version++
	r.mu.Unlock()

	r.notify()
	return true
}

// SetReconnecting flags the view as possibly stale while the push channel
// is down.
func (r *Reconciler) SetReconnecting(reconnecting bool) {
	r.mu.Lock()
	if r.view.Reconnecting == reconnecting {
		r.mu.Unlock()
		return
	}
	r.view.Reconnecting = reconnecting
	r.version++
	r.mu.Unlock()

	r.notify()
}

// TopicRejected records that the server refused topic. The view keeps its
// last state and is flagged as denied.
func (r *Reconciler) TopicRejected(topic kernel.Topic, err error) {
	r.logger.Warn("topic rejected", "topic", topic.String(), "error", err)

	r.mu.Lock()
	if r.view.Denied {
		r.mu.Unlock()
		return
	}
	r.view.Denied = true
	r.version++
	r.mu.Unlock()

	r.notify()
}

func (r *Reconciler) applySnapshot(snap ports.OrderTracking) error {
	resource := "order " + r.orderID.String()
	if err := snap.Order.Validate(); err != nil {
		return errs.NewSnapshotFetchFailedError(resource, err)
	}
	if snap.Order.ID() != r.orderID {
		return errs.NewSnapshotFetchFailedError(resource,
			fmt.Errorf("snapshot carries order %s", snap.Order.ID()))
	}

	r.mu.Lock()
	previousAgent := r.view.AgentID
	previousLocation := r.view.AgentLocation

	r.order = snap.Order.Clone()
	r.view.Status = r.order.Status()
	r.view.PickupAddress = r.order.PickupAddress()
	r.view.DropoffAddress = r.order.DropoffAddress()
	r.view.AgentID = r.order.Agent()
	r.view.AgentName = ""
	r.view.AgentPhone = ""
	r.view.AgentLocation = nil

	if snap.Agent != nil && r.view.AgentID != nil && snap.Agent.ID() == *r.view.AgentID {
		r.view.AgentName = snap.Agent.Name()
		r.view.AgentPhone = snap.Agent.Phone()
		r.view.AgentLocation = snap.Agent.LastKnownLocation()
	}

	sameAgent := previousAgent != nil && r.view.AgentID != nil && *previousAgent == *r.view.AgentID
	if sameAgent && previousLocation != nil && previousLocation.IsNewerThan(r.view.AgentLocation) {
		r.view.AgentLocation = previousLocation
	}

	r.view.SnapshotAt = r.now()
	r.view.Seeded = true
	r.version++
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *Reconciler) notify() {
	if r.onChange == nil {
		return
	}

	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	version := r.version
	view := r.view.clone()
	r.mu.Unlock()

	if version <= r.notified {
		return
	}
	r.notified = version
	r.onChange(view)
}

func classifyFetchError(orderID kernel.ID, err error) error {
	if errors.Is(err, errs.ErrSnapshotFetchFailed) ||
		errors.Is(err, errs.ErrUnauthorized) ||
		errors.Is(err, errs.ErrObjectNotFound) {
		return err
	}
	return errs.NewSnapshotFetchFailedError("order "+orderID.String(), err)
}
