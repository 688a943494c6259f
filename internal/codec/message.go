package codec

import (
	"encoding/json"

	"trackinghub/internal/pkg/errs"
)

// MessageType names a push channel message.
type MessageType string

const (
	TypeAuth         MessageType = "auth"
	TypeAuthOK       MessageType = "auth_ok"
	TypeAuthError    MessageType = "auth_error"
	TypeSubscribe    MessageType = "subscribe"
	TypeSubscribed   MessageType = "subscribed"
	TypeUnsubscribe  MessageType = "unsubscribe"
	TypeUnsubscribed MessageType = "unsubscribed"
	TypeError        MessageType = "error"

	TypeLocationUpdate MessageType = "locationUpdate"
	TypeStatusUpdate   MessageType = "statusUpdate"
)

// Message is the envelope of every frame on the push channel.
type Message struct {
	Type    MessageType     `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewAuth builds the first frame a client sends.
func NewAuth(token string) Message {
	return Message{Type: TypeAuth, Token: token}
}

// NewError builds an error frame, optionally tied to a topic.
func NewError(topic string, err error) Message {
	return Message{Type: TypeError, Topic: topic, Error: err.Error()}
}

// DecodeMessage parses an envelope. The payload is left raw.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errs.NewInvalidPayloadErrorWithCause("message", err)
	}
	if msg.Type == "" {
		return Message{}, errs.NewInvalidPayloadErrorWithCause("message", errs.NewValueIsRequiredError("type"))
	}
	return msg, nil
}

// EncodeMessage renders an envelope.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
