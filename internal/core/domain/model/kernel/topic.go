package kernel

import (
	"fmt"
	"strings"

	"trackinghub/internal/pkg/errs"
)

// TopicKind names the stream a topic routes.
type TopicKind string

const (
	// OrderTopicKind routes status events of one order.
	OrderTopicKind TopicKind = "order"
	// AgentTopicKind routes location samples of one agent.
	AgentTopicKind TopicKind = "agent"
)

// ErrTopicIsNotConstructed is returned when validating a zero-value Topic.
var ErrTopicIsNotConstructed = errs.NewValueIsRequiredError("topic must be created via OrderTopic, AgentTopic or ParseTopic")

// Topic is a routing key subscribers use to express interest in a stream
// of events. Topics are comparable and can be used as map keys.
//
// Example:
//
//	kernel.OrderTopic(42).String() // "order:42"
//	kernel.AgentTopic(7).String()  // "agent:7"
type Topic struct {
	kind TopicKind
	id   ID
}

// OrderTopic returns the topic carrying status events of orderID.
func OrderTopic(orderID ID) Topic {
	return Topic{kind: OrderTopicKind, id: orderID}
}

// AgentTopic returns the topic carrying location samples of agentID.
func AgentTopic(agentID ID) Topic {
	return Topic{kind: AgentTopicKind, id: agentID}
}

// ParseTopic parses the "<kind>:<id>" wire form.
func ParseTopic(s string) (Topic, error) {
	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return Topic{}, errs.NewValueIsInvalidErrorWithCause("topic", fmt.Errorf("%q has no kind separator", s))
	}

	id, err := ParseID(rawID)
	if err != nil {
		return Topic{}, errs.NewValueIsInvalidErrorWithCause("topic", err)
	}

	switch TopicKind(kind) {
	case OrderTopicKind:
		return OrderTopic(id), nil
	case AgentTopicKind:
		return AgentTopic(id), nil
	default:
		return Topic{}, errs.NewValueIsInvalidErrorWithCause("topic", fmt.Errorf("%q is not a known topic kind", kind))
	}
}

// Kind returns the stream kind.
func (t Topic) Kind() TopicKind {
	return t.kind
}

// ID returns the order or agent id the topic routes.
func (t Topic) ID() ID {
	return t.id
}

// IsOrder reports whether t routes order status events.
func (t Topic) IsOrder() bool {
	return t.kind == OrderTopicKind
}

// IsAgent reports whether t routes agent location samples.
func (t Topic) IsAgent() bool {
	return t.kind == AgentTopicKind
}

// Validate rejects zero values and topics built around invalid ids.
func (t Topic) Validate() error {
	if t.kind != OrderTopicKind && t.kind != AgentTopicKind {
		return ErrTopicIsNotConstructed
	}
	return t.id.Validate()
}

func (t Topic) String() string {
	return string(t.kind) + ":" + t.id.String()
}
