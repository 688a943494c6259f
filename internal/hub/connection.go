package hub

import (
	"log/slog"
	"sync"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/metrics"
)

type envelope struct {
	event Event
	key   string
	gen   uint64
}

type connection struct {
	id   kernel.UUID
	cred ports.Credential
	sink Sink

	mailbox chan envelope
	done    chan struct{}
	stopped chan struct{}

	// stateMu guards active, nextGen and closed. It is never held while a
	// sink runs.
	stateMu sync.Mutex
	active  map[string]uint64
	nextGen uint64
	closed  bool

	// deliverMu is held for the duration of each Sink.Deliver call.
	deliverMu sync.Mutex

	logger *slog.Logger
}

func newConnection(id kernel.UUID, cred ports.Credential, sink Sink, bufferSize int, logger *slog.Logger) *connection {
	return &connection{
		id:      id,
		cred:    cred,
		sink:    sink,
		mailbox: make(chan envelope, bufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		active:  make(map[string]uint64),
		logger:  logger.With("connection", id.String()),
	}
}

// activate records a new membership generation for key.
// Caller holds the topic lock.
func (c *connection) activate(key string) (uint64, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.closed {
		return 0, false
	}
	c.nextGen++
	c.active[key] = c.nextGen
	return c.nextGen, true
}

// deactivate forgets the membership for key if it is still generation gen.
func (c *connection) deactivate(key string, gen uint64) {
	c.stateMu.Lock()
	if current, ok := c.active[key]; ok && current == gen {
		delete(c.active, key)
	}
	c.stateMu.Unlock()
}

// memberships returns a copy of the active topic keys.
func (c *connection) memberships() []string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	keys := make([]string, 0, len(c.active))
	for key := range c.active {
		keys = append(keys, key)
	}
	return keys
}

// barrier waits for an in-flight delivery to finish.
func (c *connection) barrier() {
	c.deliverMu.Lock()
	c.deliverMu.Unlock() //nolint:staticcheck // SA2001 barrier
}

func (c *connection) isCurrent(env envelope) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	gen, ok := c.active[env.key]
	return !c.closed && ok && gen == env.gen
}

// enqueue offers env to the mailbox without blocking.
func (c *connection) enqueue(env envelope) bool {
	select {
	case c.mailbox <- env:
		return true
	default:
		return false
	}
}

func (c *connection) run() {
	defer close(c.stopped)

	for {
		select {
		case <-c.done:
			return
		case env := <-c.mailbox:
			c.deliver(env)
		}
	}
}

func (c *connection) deliver(env envelope) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if !c.isCurrent(env) {
		metrics.HubEventsDroppedTotal.WithLabelValues(metrics.DropUnsubscribed).Inc()
		return
	}

	if err := c.sink.Deliver(env.event); err != nil {
		metrics.HubEventsDroppedTotal.WithLabelValues(metrics.DropSinkError).Inc()
		c.logger.Warn("sink rejected event", "topic", env.key, "error", err)
		return
	}
	metrics.HubEventsDeliveredTotal.Inc()
}

func (c *connection) close() {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return
	}
	c.closed = true
	clear(c.active)
	c.stateMu.Unlock()

	close(c.done)
	c.barrier()
}
