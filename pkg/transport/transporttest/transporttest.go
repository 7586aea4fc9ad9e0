// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vango-dev/vgate/pkg/transport"
)

// ErrClosed is returned by Send on a closed Conn.
var ErrClosed = errors.New("transporttest: connection closed")

// Dialer is a transport.Dialer that hands out Conns the test can drive.
type Dialer struct {
	mu       sync.Mutex
	failures []error
	dialed   []*Conn
	urls     []string

	conns chan *Conn
}

// NewDialer creates a Dialer.
func NewDialer() *Dialer {
	return &Dialer{conns: make(chan *Conn, 64)}
}

// FailNext makes the next Dial return err.
func (d *Dialer) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, err)
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string, l transport.Listener) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.urls = append(d.urls, url)
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		d.mu.Unlock()
		return nil, err
	}
	c := &Conn{
		URL:      url,
		listener: l,
		sent:     make(chan []byte, 256),
	}
	d.dialed = append(d.dialed, c)
	d.mu.Unlock()

	d.conns <- c
	return c, nil
}

// Dials returns the number of Dial calls, including failed ones.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// URLs returns every URL passed to Dial.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Next waits for the next successfully dialed Conn.
func (d *Dialer) Next(timeout time.Duration) (*Conn, bool) {
	select {
	case c := <-d.conns:
		return c, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Conn is an in-memory transport.Conn.
type Conn struct {
	URL string

	listener transport.Listener
	sent     chan []byte

	mu          sync.Mutex
	frames      [][]byte
	closed      bool
	closeCode   int
	closeReason string
}

// Send implements transport.Conn.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	frame := append([]byte(nil), data...)
	c.frames = append(c.frames, frame)
	select {
	case c.sent <- frame:
	default:
	}
	return nil
}

// Close implements transport.Conn. It does not call back into the listener.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	return nil
}

// Deliver feeds an inbound frame to the listener.
func (c *Conn) Deliver(data string) {
	c.listener.OnMessage([]byte(data))
}

// ServerClose ends the connection from the remote side.
func (c *Conn) ServerClose(code int, reason string) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.listener.OnClose(code, reason)
}

// Fail reports a read error followed by an abnormal close.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.listener.OnError(err)
	c.listener.OnClose(transport.CloseAbnormal, err.Error())
}

// NextSent waits for the next frame written with Send.
func (c *Conn) NextSent(timeout time.Duration) ([]byte, bool) {
	select {
	case f := <-c.sent:
		return f, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Sent returns every frame written so far.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// Closed reports whether the connection was closed, and the local close
// code if Close was called.
func (c *Conn) Closed() (code int, reason string, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason, c.closed
}
