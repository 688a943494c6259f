package ws

import (
	"fmt"
	"sync"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/hub"

	"github.com/gorilla/websocket"
)

// socket serializes writes to one WebSocket and doubles as the hub sink of
// its connection.
type socket struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newSocket(ws *websocket.Conn, writeTimeout time.Duration) *socket {
	return &socket{ws: ws, writeTimeout: writeTimeout}
}

// Deliver renders a routed event as an outbound frame.
func (s *socket) Deliver(ev hub.Event) error {
	msg, err := eventMessage(ev)
	if err != nil {
		return err
	}
	return s.write(msg)
}

func (s *socket) write(msg codec.Message) error {
	raw, err := codec.EncodeMessage(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return websocket.ErrCloseSent
	}
	if err = s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.TextMessage, raw)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

// keepalive pings every period until the returned stop is called.
func (s *socket) keepalive(period time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if s.ping() != nil {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (s *socket) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	s.mu.Unlock()

	_ = s.ws.Close()
}

func eventMessage(ev hub.Event) (codec.Message, error) {
	switch {
	case ev.Location != nil:
		payload, err := codec.EncodeLocation(*ev.Location)
		if err != nil {
			return codec.Message{}, err
		}
		return codec.Message{Type: codec.TypeLocationUpdate, Topic: ev.Topic.String(), Payload: payload}, nil
	case ev.Status != nil:
		payload, err := codec.EncodeStatusUpdate(*ev.Status)
		if err != nil {
			return codec.Message{}, err
		}
		return codec.Message{Type: codec.TypeStatusUpdate, Topic: ev.Topic.String(), Payload: payload}, nil
	default:
		return codec.Message{}, fmt.Errorf("event on %s carries no payload", ev.Topic)
	}
}
