// Package wsclient dials the hub's push channel over WebSocket and adapts
// it to the session package's Conn and Transport contracts.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/session"

	"github.com/gorilla/websocket"
)

const (
	// DefaultHandshakeTimeout bounds the WebSocket upgrade.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a frame write when the caller sets no deadline.
	DefaultWriteTimeout = 10 * time.Second

	inboxSize = 16
)

// ErrClosed is returned by a Conn after Close.
var ErrClosed = errors.New("connection closed")

// Transport dials a fixed hub URL.
type Transport struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithDialer replaces the gorilla dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dialer = d
		}
	}
}

// WithHeader adds headers to the upgrade request.
func WithHeader(h http.Header) Option {
	return func(t *Transport) {
		t.header = h.Clone()
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates a transport for the ws:// or wss:// url.
func NewTransport(url string, opts ...Option) *Transport {
	t := &Transport{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "wsclient")
	return t
}

// Dial opens a push channel. A handshake refused with 401 or 403 is
// reported as unauthorized; every other failure as a dropped transport.
func (t *Transport) Dial(ctx context.Context) (session.Conn, error) {
	ws, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errs.NewUnauthorizedErrorWithCause("handshake", err)
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrTransportDropped, err)
	}

	return newConn(ws, t.logger), nil
}

// Conn is a WebSocket push channel. Frames are read by a background
// goroutine so that Receive honours context cancellation without tearing
// the connection down.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	inbox   chan codec.Message
	readErr error
	done    chan struct{}
	once    sync.Once
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		logger: logger,
		inbox:  make(chan codec.Message, inboxSize),
		done:   make(chan struct{}),
	}
	go c.readPump()
	return c
}

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, msg codec.Message) error {
	raw, err := codec.EncodeMessage(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err = c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Receive returns the next frame, or the read error once the channel is gone.
func (c *Conn) Receive(ctx context.Context) (codec.Message, error) {
	select {
	case msg, ok := <-c.inbox:
		if !ok {
			return codec.Message{}, c.readErr
		}
		return msg, nil
	case <-ctx.Done():
		return codec.Message{}, ctx.Err()
	}
}

// Close sends a close frame and releases the socket. It is idempotent.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readPump() {
	defer close(c.inbox)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.readErr = ErrClosed
			default:
				c.readErr = err
			}
			return
		}

		msg, err := codec.DecodeMessage(raw)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		select {
		case c.inbox <- msg:
		case <-c.done:
			c.readErr = ErrClosed
			return
		}
	}
}
