package hub

import (
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
)

// Event is a single broadcast. Exactly one of Location and Status is set.
type Event struct {
	Topic       kernel.Topic
	Location    *agent.LocationSample
	Status      *order.StatusEvent
	PublishedAt time.Time
}

// LocationEvent wraps a location sample for the agent's topic.
func LocationEvent(sample agent.LocationSample) Event {
	return Event{Topic: kernel.AgentTopic(sample.AgentID()), Location: &sample}
}

// StatusEvent wraps an applied transition for the order's topic.
func StatusEvent(ev order.StatusEvent) Event {
	return Event{Topic: kernel.OrderTopic(ev.OrderID), Status: &ev}
}

// Sink receives the events routed to one connection. Deliver is called from
// a single goroutine per connection and must not call back into the Hub.
type Sink interface {
	Deliver(ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event) error

func (f SinkFunc) Deliver(ev Event) error {
	return f(ev)
}
