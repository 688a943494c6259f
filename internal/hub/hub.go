package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"
)

// DefaultBufferSize is the mailbox capacity of a connection.
const DefaultBufferSize = 64

type member struct {
	conn *connection
	gen  uint64
}

type topicState struct {
	mu      sync.Mutex
	members map[kernel.UUID]member
}

// Hub is a concurrent topic broker. The zero value is not usable; create
// hubs with New.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topicState
	conns  map[kernel.UUID]*connection

	bufferSize int
	authorizer Authorizer
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-connection mailbox capacity.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithAuthorizer sets the collaborator consulted for delegated topics.
func WithAuthorizer(a Authorizer) Option {
	return func(h *Hub) {
		if a != nil {
			h.authorizer = a
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock sets the clock stamping PublishedAt.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// New creates a hub with no connections.
func New(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[string]*topicState),
		conns:      make(map[kernel.UUID]*connection),
		bufferSize: DefaultBufferSize,
		authorizer: DenyAll,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "Hub")
	return h
}

// Register attaches a connection and starts its delivery goroutine.
//
// Returns a ValueIsInvalidError when connID is already registered.
func (h *Hub) Register(connID kernel.UUID, cred ports.Credential, sink Sink) error {
	if err := connID.Validate(); err != nil {
		return err
	}
	if sink == nil {
		return errs.NewValueIsRequiredError("sink")
	}

	h.mu.Lock()
	if _, ok := h.conns[connID]; ok {
		h.mu.Unlock()
		return errs.NewValueIsInvalidErrorWithCause("connID", fmt.Errorf("connection %s is already registered", connID))
	}
	c := newConnection(connID, cred, sink, h.bufferSize, h.logger)
	h.conns[connID] = c
	h.mu.Unlock()

	go c.run()

	metrics.HubConnections.Inc()
	h.logger.Debug("connection registered", "connection", connID.String(), "role", cred.Role)
	return nil
}

// Unregister detaches a connection: it is unsubscribed from every topic and
// its delivery goroutine stops. Unknown connections are ignored.
func (h *Hub) Unregister(connID kernel.UUID) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)
	removed := h.removeMemberships(c, c.memberships())
	h.mu.Unlock()

	c.close()
	<-c.stopped

	metrics.HubSubscriptions.Sub(float64(removed))
	metrics.HubConnections.Dec()
	h.logger.Debug("connection unregistered", "connection", connID.String())
}

// Subscribe adds connID to topic.
//
// The subscriber's own agent topic is admitted directly; every other topic
// is delegated to the Authorizer first. Subscribing twice is a no-op and
// does not consult the Authorizer again.
//
// Returns:
//   - ObjectNotFoundError when connID is not registered
//   - UnauthorizedError when the Authorizer rejects the topic
func (h *Hub) Subscribe(ctx context.Context, connID kernel.UUID, topic kernel.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}

	c := h.connection(connID)
	if c == nil {
		return errs.NewObjectNotFoundError("connection", connID)
	}

	if h.isMember(c, topic.String()) {
		return nil
	}

	if err := h.authorize(ctx, c.cred, topic); err != nil {
		metrics.HubSubscribeRejectedTotal.Inc()
		h.logger.InfoContext(ctx, "subscription rejected",
			"connection", connID.String(), "topic", topic.String(), "error", err)
		return errs.NewUnauthorizedErrorWithCause(topic.String(), err)
	}

	key := topic.String()

	h.mu.Lock()
	if _, ok := h.conns[connID]; !ok {
		h.mu.Unlock()
		return errs.NewObjectNotFoundError("connection", connID)
	}
	t := h.topics[key]
	if t == nil {
		t = &topicState{members: make(map[kernel.UUID]member)}
		h.topics[key] = t
	}
	t.mu.Lock()
	h.mu.Unlock()
	defer t.mu.Unlock()

	if _, ok := t.members[connID]; ok {
		return nil
	}
	gen, ok := c.activate(key)
	if !ok {
		return errs.NewObjectNotFoundError("connection", connID)
	}
	t.members[connID] = member{conn: c, gen: gen}

	metrics.HubSubscriptions.Inc()
	h.logger.DebugContext(ctx, "subscribed", "connection", connID.String(), "topic", key)
	return nil
}

// Unsubscribe removes connID from topic. Missing memberships are ignored.
// Once it returns, no further event of topic reaches the connection.
func (h *Hub) Unsubscribe(connID kernel.UUID, topic kernel.Topic) {
	c := h.connection(connID)
	if c == nil {
		return
	}

	h.mu.Lock()
	removed := h.removeMemberships(c, []string{topic.String()})
	h.mu.Unlock()

	c.barrier()
	metrics.HubSubscriptions.Sub(float64(removed))
}

// UnsubscribeAll removes connID from every topic. The connection stays
// registered.
func (h *Hub) UnsubscribeAll(connID kernel.UUID) {
	c := h.connection(connID)
	if c == nil {
		return
	}

	h.mu.Lock()
	removed := h.removeMemberships(c, c.memberships())
	h.mu.Unlock()

	c.barrier()
	metrics.HubSubscriptions.Sub(float64(removed))
}

// Publish offers ev to every subscriber of topic and returns how many
// mailboxes accepted it. It never blocks on a subscriber: a full mailbox
// drops the event for that connection. Publishing to a topic without
// subscribers is a no-op.
func (h *Hub) Publish(topic kernel.Topic, ev Event) int {
	key := topic.String()
	ev.Topic = topic
	if ev.PublishedAt.IsZero() {
		ev.PublishedAt = h.now()
	}
	metrics.HubEventsPublishedTotal.WithLabelValues(string(topic.Kind())).Inc()

	h.mu.RLock()
	t := h.topics[key]
	if t == nil {
		h.mu.RUnlock()
		return 0
	}
	t.mu.Lock()
	h.mu.RUnlock()
	defer t.mu.Unlock()

	accepted := 0
	for id, m := range t.members {
		if m.conn.enqueue(envelope{event: ev, key: key, gen: m.gen}) {
			accepted++
			continue
		}
		metrics.HubEventsDroppedTotal.WithLabelValues(metrics.DropMailboxFull).Inc()
		h.logger.Warn("mailbox full, event dropped", "connection", id.String(), "topic", key)
	}
	return accepted
}

// Subscribers returns the number of connections subscribed to topic.
func (h *Hub) Subscribers(topic kernel.Topic) int {
	h.mu.RLock()
	t := h.topics[topic.String()]
	h.mu.RUnlock()
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members)
}

// Close unregisters every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]kernel.UUID, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Unregister(id)
	}
}

func (h *Hub) connection(connID kernel.UUID) *connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[connID]
}

func (h *Hub) isMember(c *connection, key string) bool {
	h.mu.RLock()
	t := h.topics[key]
	h.mu.RUnlock()
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.members[c.id]
	return ok
}

func (h *Hub) authorize(ctx context.Context, cred ports.Credential, topic kernel.Topic) error {
	if topic.IsAgent() && cred.IsAgentID(topic.ID()) {
		return nil
	}
	return h.authorizer.Authorize(ctx, cred, topic)
}

// removeMemberships drops c from the given topics and garbage-collects
// topics left empty. Caller holds h.mu for writing.
func (h *Hub) removeMemberships(c *connection, keys []string) int {
	removed := 0
	for _, key := range keys {
		t := h.topics[key]
		if t == nil {
			continue
		}

		t.mu.Lock()
		if m, ok := t.members[c.id]; ok {
			delete(t.members, c.id)
			c.deactivate(key, m.gen)
			removed++
		}
		if len(t.members) == 0 {
			delete(h.topics, key)
		}
		t.mu.Unlock()
	}
	return removed
}
