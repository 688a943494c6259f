package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

var errNotConnected = fmt.Errorf("%w: session is not connected", errs.ErrTransportDropped)

// Manager owns the push channel of one client and the listeners attached
// to it.
type Manager struct {
	transport Transport
	cfg       Config
	logger    *slog.Logger
	onState   func(State)

	mu        sync.Mutex
	state     State
	conn      Conn
	listeners []Listener
	cancel    context.CancelFunc
	closed    bool

	// syncMu serializes topic reconciliation; subscribed and rejected are
	// guarded by it. rejected survives reconnects.
	syncMu     sync.Mutex
	subscribed map[kernel.Topic]struct{}
	rejected   map[kernel.Topic]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStateObserver registers a callback invoked on every state change.
func WithStateObserver(fn func(State)) Option {
	return func(m *Manager) {
		m.onState = fn
	}
}

// NewManager creates a disconnected manager. Call Run to connect.
func NewManager(transport Transport, cfg Config, opts ...Option) (*Manager, error) {
	if transport == nil {
		return nil, errs.NewValueIsRequiredError("transport")
	}
	if cfg.Token == "" {
		return nil, errs.NewValueIsRequiredError("token")
	}

	m := &Manager{
		transport:  transport,
		cfg:        cfg,
		logger:     slog.Default(),
		subscribed: make(map[kernel.Topic]struct{}),
		rejected:   make(map[kernel.Topic]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "SessionManager")
	return m, nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run connects and keeps the session alive until ctx is cancelled, Close
// is called, the credential is rejected or the reconnect budget runs out.
// It returns nil after Close.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.cancel = cancel
	m.mu.Unlock()

	b := m.cfg.newBackOff()
	attempt := 0

	for {
		err := m.connectAndServe(ctx, b)
		m.setState(Disconnected)

		if m.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errs.ErrUnauthorized) {
			m.logger.ErrorContext(ctx, "credential rejected, giving up", "error", err)
			return err
		}

		m.signalReconnecting(true)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			m.logger.ErrorContext(ctx, "reconnect budget exhausted", "attempts", attempt, "error", err)
			if errors.Is(err, errs.ErrTransportDropped) {
				return err
			}
			return fmt.Errorf("%w: %w", errs.ErrTransportDropped, err)
		}
		attempt++
		m.logger.WarnContext(ctx, "session lost, reconnecting", "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if m.isClosed() {
				return nil
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Subscribe attaches a listener. When the session is up the listener is
// resynced first and its topics are subscribed afterwards; otherwise both
// happen on the next connect.
func (m *Manager) Subscribe(ctx context.Context, l Listener) error {
	if l == nil {
		return errs.NewValueIsRequiredError("listener")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errNotConnected
	}
	m.listeners = append(m.listeners, l)
	conn, state := m.conn, m.state
	m.mu.Unlock()

	if state != Subscribed || conn == nil {
		return nil
	}

	if err := l.Resync(ctx); err != nil {
		return err
	}
	return m.syncTopics(ctx, conn)
}

// Unsubscribe detaches a listener and drops the topics no other listener
// needs.
func (m *Manager) Unsubscribe(ctx context.Context, l Listener) error {
	m.mu.Lock()
	m.listeners = slices.DeleteFunc(m.listeners, func(other Listener) bool { return other == l })
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return m.syncTopics(ctx, conn)
}

// Emit sends msg over the session. It fails with an error wrapping
// errs.ErrTransportDropped unless the session is authenticated.
func (m *Manager) Emit(ctx context.Context, msg codec.Message) error {
	m.mu.Lock()
	conn, state := m.conn, m.state
	m.mu.Unlock()

	if conn == nil || state < Authenticated {
		return errNotConnected
	}
	if err := conn.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTransportDropped, err)
	}
	return nil
}

// Close unsubscribes every topic, stops Run and cancels a pending
// reconnect wait.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.listeners = nil
	conn, cancel := m.conn, m.cancel
	m.mu.Unlock()

	var err error
	if conn != nil {
		ctx, stop := context.WithTimeout(context.Background(), time.Second)
		err = m.syncTopics(ctx, conn)
		stop()
		err = errors.Join(err, conn.Close())
	}
	if cancel != nil {
		cancel()
	}
	return err
}

func (m *Manager) connectAndServe(ctx context.Context, b *backoff.ExponentialBackOff) error {
	m.setState(Connecting)

	conn, err := m.transport.Dial(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: dial: %w", errs.ErrTransportDropped, err)
	}
	defer conn.Close()

	if err = m.authenticate(ctx, conn); err != nil {
		return err
	}

	m.syncMu.Lock()
	clear(m.subscribed)
	m.syncMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.conn = conn
	m.mu.Unlock()
	defer m.clearConn(conn)

	m.setState(Authenticated)

	for _, l := range m.snapshotListeners() {
		if err = l.Resync(ctx); err != nil {
			return err
		}
	}
	if err = m.syncTopics(ctx, conn); err != nil {
		return err
	}

	m.setState(Subscribed)
	m.signalReconnecting(false)
	b.Reset()
	m.logger.InfoContext(ctx, "session established")

	return m.readLoop(ctx, conn)
}

func (m *Manager) authenticate(ctx context.Context, conn Conn) error {
	authCtx := ctx
	if m.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, m.cfg.AuthTimeout)
		defer cancel()
	}

	if err := conn.Send(authCtx, codec.NewAuth(m.cfg.Token)); err != nil {
		return fmt.Errorf("%w: send auth: %w", errs.ErrTransportDropped, err)
	}

	reply, err := conn.Receive(authCtx)
	if err != nil {
		return fmt.Errorf("%w: await auth: %w", errs.ErrTransportDropped, err)
	}

	switch reply.Type {
	case codec.TypeAuthOK:
		return nil
	case codec.TypeAuthError:
		return errs.NewUnauthorizedError(reply.Error)
	default:
		return fmt.Errorf("%w: unexpected %q before auth_ok", errs.ErrTransportDropped, reply.Type)
	}
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrTransportDropped, err)
		}
		m.dispatch(ctx, conn, msg)
	}
}

func (m *Manager) dispatch(ctx context.Context, conn Conn, msg codec.Message) {
	switch msg.Type {
	case codec.TypeLocationUpdate:
		sample, err := codec.DecodeLocation(msg.Payload)
		if err != nil {
			m.logger.WarnContext(ctx, "invalid location dropped", "error", err)
			return
		}
		topic := kernel.AgentTopic(sample.AgentID())
		for _, l := range m.listenersFor(topic) {
			l.ApplyLocation(sample)
		}

	case codec.TypeStatusUpdate:
		ev, err := codec.DecodeStatusUpdate(msg.Payload)
		if err != nil {
			m.logger.WarnContext(ctx, "invalid status update dropped", "error", err)
			return
		}
		topic := kernel.OrderTopic(ev.OrderID)
		for _, l := range m.listenersFor(topic) {
			if err = l.ApplyStatus(ctx, ev); err != nil {
				m.logger.WarnContext(ctx, "status update not applied", "event", ev.String(), "error", err)
			}
		}
		if err = m.syncTopics(ctx, conn); err != nil {
			m.logger.WarnContext(ctx, "topic resync failed", "error", err)
		}

	case codec.TypeError:
		m.logger.WarnContext(ctx, "server reported error", "topic", msg.Topic, "error", msg.Error)
		if topic, err := kernel.ParseTopic(msg.Topic); err == nil {
			m.reject(topic, msg.Error)
		}

	case codec.TypeSubscribed, codec.TypeUnsubscribed:
		m.logger.DebugContext(ctx, string(msg.Type), "topic", msg.Topic)

	default:
		m.logger.DebugContext(ctx, "message ignored", "type", msg.Type)
	}
}

// reject marks topic as refused by the server and tells the listeners
// that need it. The topic is not subscribed again until no listener
// needs it anymore.
func (m *Manager) reject(topic kernel.Topic, reason string) {
	m.syncMu.Lock()
	delete(m.subscribed, topic)
	m.rejected[topic] = struct{}{}
	m.syncMu.Unlock()

	if reason == "" {
		reason = "subscription refused"
	}
	err := errs.NewUnauthorizedErrorWithCause(topic.String(), errors.New(reason))
	for _, l := range m.listenersFor(topic) {
		if rl, ok := l.(RejectionListener); ok {
			rl.TopicRejected(topic, err)
		}
	}
}

// syncTopics subscribes the topics listeners need and unsubscribes the
// ones nobody needs anymore. Rejected topics are skipped.
func (m *Manager) syncTopics(ctx context.Context, conn Conn) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	wanted := make(map[kernel.Topic]struct{})
	for _, l := range m.snapshotListeners() {
		for _, topic := range l.Topics() {
			wanted[topic] = struct{}{}
		}
	}

	for topic := range m.rejected {
		if _, ok := wanted[topic]; !ok {
			delete(m.rejected, topic)
		}
	}

	for topic := range m.subscribed {
		if _, ok := wanted[topic]; ok {
			continue
		}
		if err := conn.Send(ctx, codec.Message{Type: codec.TypeUnsubscribe, Topic: topic.String()}); err != nil {
			return fmt.Errorf("%w: unsubscribe %s: %w", errs.ErrTransportDropped, topic, err)
		}
		delete(m.subscribed, topic)
	}

	for topic := range wanted {
		if _, ok := m.subscribed[topic]; ok {
			continue
		}
		if _, ok := m.rejected[topic]; ok {
			continue
		}
		if err := conn.Send(ctx, codec.Message{Type: codec.TypeSubscribe, Topic: topic.String()}); err != nil {
			return fmt.Errorf("%w: subscribe %s: %w", errs.ErrTransportDropped, topic, err)
		}
		m.subscribed[topic] = struct{}{}
	}
	return nil
}

func (m *Manager) listenersFor(topic kernel.Topic) []Listener {
	var out []Listener
	for _, l := range m.snapshotListeners() {
		if slices.Contains(l.Topics(), topic) {
			out = append(out, l)
		}
	}
	return out
}

func (m *Manager) snapshotListeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.listeners)
}

func (m *Manager) signalReconnecting(reconnecting bool) {
	for _, l := range m.snapshotListeners() {
		l.SetReconnecting(reconnecting)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()

	if changed && m.onState != nil {
		m.onState(s)
	}
}

func (m *Manager) clearConn(conn Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
