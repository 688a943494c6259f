package session

import (
	"context"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
)

// Conn is one established push channel. Send may be called concurrently
// with Receive; Receive is called from a single goroutine.
type Conn interface {
	Send(ctx context.Context, msg codec.Message) error
	Receive(ctx context.Context) (codec.Message, error)
	Close() error
}

// Transport opens push channels.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Listener is a subscriber attached to a session, typically a
// tracking.Reconciler.
type Listener interface {
	// Topics lists the topics the listener needs now.
	Topics() []kernel.Topic
	// Resync replaces the listener's state with a fresh snapshot.
	Resync(ctx context.Context) error
	ApplyStatus(ctx context.Context, ev order.StatusEvent) error
	ApplyLocation(sample agent.LocationSample) bool
	// SetReconnecting flags the listener's state as possibly stale.
	SetReconnecting(reconnecting bool)
}

// RejectionListener is implemented by listeners that want to learn when the
// server refuses one of their topics. A refused topic is not subscribed
// again while any listener still needs it.
type RejectionListener interface {
	TopicRejected(topic kernel.Topic, err error)
}
