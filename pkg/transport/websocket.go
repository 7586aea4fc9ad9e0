package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Sentinel errors for websocket connections.
var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("transport: connection closed")
)

// WebSocketConfig configures a WebSocketDialer.
type WebSocketConfig struct {
	// HandshakeTimeout bounds the opening handshake.
	// Default: 15s
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every outbound frame.
	// Default: 10s
	WriteTimeout time.Duration

	// ReadLimit is the largest inbound message accepted, in bytes.
	// Default: 4MB
	ReadLimit int64

	// Header is sent with the opening handshake.
	Header http.Header

	// Logger receives connection-level logs.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultWebSocketConfig returns a WebSocketConfig with sensible defaults.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		HandshakeTimeout: 15 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        4 * 1024 * 1024,
	}
}

// WebSocketDialer dials gateway connections with gorilla/websocket.
type WebSocketDialer struct {
	config *WebSocketConfig
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer. A nil config uses the defaults.
func NewWebSocketDialer(config *WebSocketConfig) *WebSocketDialer {
	if config == nil {
		config = DefaultWebSocketConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketDialer{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger.With("component", "transport"),
	}
}

// Dial implements Dialer. The returned connection starts its read loop
// immediately.
func (d *WebSocketDialer) Dial(ctx context.Context, url string, l Listener) (Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, url, d.config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	if d.config.ReadLimit > 0 {
		ws.SetReadLimit(d.config.ReadLimit)
	}

	c := &wsConn{
		conn:         ws,
		listener:     l,
		writeTimeout: d.config.WriteTimeout,
		logger:       d.logger.With("url", url),
	}
	go c.readLoop()
	return c, nil
}

type wsConn struct {
	conn         *websocket.Conn
	listener     Listener
	writeTimeout time.Duration
	logger       *slog.Logger

	mu     sync.Mutex // serializes writes
	closed atomic.Bool
}

// readLoop delivers inbound frames until the connection ends.
func (c *wsConn) readLoop() {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		if c.closed.Load() {
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Warn("ignoring non-text frame", "type", msgType)
			continue
		}
		c.listener.OnMessage(msg)
	}
}

// finish reports the end of the connection unless it was closed locally.
func (c *wsConn) finish(err error) {
	if c.closed.Swap(true) {
		return
	}
	_ = c.conn.Close()

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Debug("connection closed by peer", "code", ce.Code, "reason", ce.Text)
		c.listener.OnClose(ce.Code, ce.Text)
		return
	}

	c.logger.Debug("read error", "error", err)
	c.listener.OnError(err)
	c.listener.OnClose(CloseAbnormal, err.Error())
}

func (c *wsConn) Send(data []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

func (c *wsConn) Close(code int, reason string) error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	c.mu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug("close frame not sent", "error", err)
	}
	return c.conn.Close()
}
