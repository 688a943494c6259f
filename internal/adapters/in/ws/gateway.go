// Package ws is the push channel gateway. It upgrades HTTP requests to
// WebSocket connections, authenticates them with the first frame, registers
// them with the hub and routes inbound frames to the hub and to the
// command handlers.
//
// Frame flow on one connection:
//
//	client                         gateway
//	  │ {"type":"auth","token":…}    │
//	  │ ───────────────────────────> │ Authenticate
//	  │ {"type":"auth_ok"}           │
//	  │ <─────────────────────────── │ hub.Register
//	  │ {"type":"subscribe",…}       │
//	  │ ───────────────────────────> │ hub.Subscribe
//	  │ {"type":"subscribed",…}      │
//	  │ <─────────────────────────── │
//	  │ {"type":"statusUpdate",…}    │ events routed by the hub
//	  │ <─────────────────────────── │
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/application/usecases/commands"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// DefaultAuthTimeout bounds the wait for the auth frame.
	DefaultAuthTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds each frame write.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultPongWait is how long a connection may stay silent before it is dropped.
	DefaultPongWait = 60 * time.Second

	maxFrameSize = 64 << 10
)

// Broker is the part of the hub the gateway drives.
type Broker interface {
	Register(connID kernel.UUID, cred ports.Credential, sink hub.Sink) error
	Unregister(connID kernel.UUID)
	Subscribe(ctx context.Context, connID kernel.UUID, topic kernel.Topic) error
	Unsubscribe(connID kernel.UUID, topic kernel.Topic)
}

// LocationHandler records agent location updates.
type LocationHandler interface {
	Handle(ctx context.Context, cmd commands.RecordLocationCommand) error
}

// StatusHandler processes agent status requests.
type StatusHandler interface {
	Handle(ctx context.Context, cmd commands.UpdateDeliveryStatusCommand) error
}

// Gateway serves the /ws endpoint.
type Gateway struct {
	auth      ports.Authenticator
	broker    Broker
	locations LocationHandler
	statuses  StatusHandler

	upgrader     websocket.Upgrader
	authTimeout  time.Duration
	writeTimeout time.Duration
	pongWait     time.Duration
	logger       *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithAuthTimeout sets how long a new connection has to authenticate.
func WithAuthTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.authTimeout = d
		}
	}
}

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// WithPongWait sets the keepalive window; pings are sent at 9/10 of it.
func WithPongWait(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.pongWait = d
		}
	}
}

// WithCheckOrigin sets the upgrader's origin policy.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) {
		g.upgrader.CheckOrigin = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates the push channel gateway.
func NewGateway(
	auth ports.Authenticator,
	broker Broker,
	locations LocationHandler,
	statuses StatusHandler,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		auth:      auth,
		broker:    broker,
		locations: locations,
		statuses:  statuses,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		authTimeout:  DefaultAuthTimeout,
		writeTimeout: DefaultWriteTimeout,
		pongWait:     DefaultPongWait,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "ws_gateway")
	return g
}

// Register mounts the gateway on path.
func (g *Gateway) Register(e *echo.Echo, path string) {
	e.GET(path, g.Serve)
}

// Serve upgrades the request and runs the connection until it closes.
func (g *Gateway) Serve(c echo.Context) error {
	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.DebugContext(c.Request().Context(), "upgrade failed", "error", err)
		return nil
	}

	g.serve(c.Request().Context(), newSocket(conn, g.writeTimeout))
	return nil
}

func (g *Gateway) serve(ctx context.Context, s *socket) {
	defer s.close()

	s.ws.SetReadLimit(maxFrameSize)

	cred, err := g.authenticate(ctx, s)
	if err != nil {
		g.logger.InfoContext(ctx, "authentication failed", "error", err)
		_ = s.write(codec.Message{Type: codec.TypeAuthError, Error: err.Error()})
		return
	}
	if err = s.write(codec.Message{Type: codec.TypeAuthOK}); err != nil {
		return
	}

	connID := kernel.NewUUID()
	if err = g.broker.Register(connID, cred, s); err != nil {
		g.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		return
	}
	defer g.broker.Unregister(connID)

	log := g.logger.With("connection", connID.String(), "user_id", cred.UserID.Int64())
	log.DebugContext(ctx, "connection authenticated", "role", string(cred.Role))

	_ = s.ws.SetReadDeadline(time.Now().Add(g.pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(g.pongWait))
	})

	stopPing := s.keepalive(g.pongWait * 9 / 10)
	defer stopPing()

	for {
		_, raw, readErr := s.ws.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.DebugContext(ctx, "connection dropped", "error", readErr)
			}
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(g.pongWait))

		msg, decodeErr := codec.DecodeMessage(raw)
		if decodeErr != nil {
			metrics.GatewayInvalidPayloadTotal.WithLabelValues("envelope").Inc()
			_ = s.write(codec.NewError("", decodeErr))
			continue
		}

		if reply, ok := g.dispatch(ctx, connID, cred, msg); ok {
			if err = s.write(reply); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) authenticate(ctx context.Context, s *socket) (ports.Credential, error) {
	deadline := time.Now().Add(g.authTimeout)
	_ = s.ws.SetReadDeadline(deadline)

	_, raw, err := s.ws.ReadMessage()
	if err != nil {
		return ports.Credential{}, errs.NewUnauthorizedErrorWithCause("no auth frame", err)
	}

	msg, err := codec.DecodeMessage(raw)
	if err != nil {
		return ports.Credential{}, err
	}
	if msg.Type != codec.TypeAuth {
		return ports.Credential{}, errs.NewUnauthorizedError("first frame must be auth")
	}

	authCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	return g.auth.Authenticate(authCtx, msg.Token)
}

// dispatch handles one inbound frame and returns the reply to send, if any.
func (g *Gateway) dispatch(ctx context.Context, connID kernel.UUID, cred ports.Credential, msg codec.Message) (codec.Message, bool) {
	switch msg.Type {
	case codec.TypeSubscribe:
		topic, err := kernel.ParseTopic(msg.Topic)
		if err != nil {
			return codec.NewError(msg.Topic, errs.NewInvalidPayloadErrorWithCause("topic", err)), true
		}
		if err = g.broker.Subscribe(ctx, connID, topic); err != nil {
			return codec.NewError(msg.Topic, err), true
		}
		return codec.Message{Type: codec.TypeSubscribed, Topic: topic.String()}, true

	case codec.TypeUnsubscribe:
		topic, err := kernel.ParseTopic(msg.Topic)
		if err != nil {
			return codec.NewError(msg.Topic, errs.NewInvalidPayloadErrorWithCause("topic", err)), true
		}
		g.broker.Unsubscribe(connID, topic)
		return codec.Message{Type: codec.TypeUnsubscribed, Topic: topic.String()}, true

	case codec.TypeLocationUpdate:
		cmd, err := commands.NewRecordLocationCommand(cred, msg.Payload)
		if err == nil {
			err = g.locations.Handle(ctx, cmd)
		}
		return g.replyTo(ctx, msg, err)

	case codec.TypeStatusUpdate:
		cmd, err := commands.NewUpdateDeliveryStatusCommand(cred, msg.Payload)
		if err == nil {
			err = g.statuses.Handle(ctx, cmd)
		}
		return g.replyTo(ctx, msg, err)

	default:
		metrics.GatewayInvalidPayloadTotal.WithLabelValues("unknown").Inc()
		return codec.NewError(msg.Topic, errs.NewInvalidPayloadErrorWithCause("type",
			errors.New("unsupported message type "+string(msg.Type)))), true
	}
}

// replyTo reports a failed inbound update back to its sender. Successful
// updates are not acknowledged.
func (g *Gateway) replyTo(ctx context.Context, msg codec.Message, err error) (codec.Message, bool) {
	if err == nil {
		return codec.Message{}, false
	}
	if !errors.Is(err, errs.ErrInvalidPayload) && !errors.Is(err, errs.ErrUnauthorized) {
		g.logger.WarnContext(ctx, "inbound update failed", "type", string(msg.Type), "error", err)
	}
	return codec.NewError(msg.Topic, err), true
}
