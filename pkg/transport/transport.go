// Package transport abstracts the bidirectional text-frame connection used
// by the gateway manager.
//
// A Dialer opens a Conn and reports inbound traffic to a Listener. Listener
// methods are called from the connection's read goroutine, one at a time,
// and never after Close has been called on the Conn.
package transport

import "context"

// Listener receives events from a single connection.
type Listener interface {
	// OnMessage is called for every inbound text frame.
	OnMessage(data []byte)

	// OnError is called for read failures that are not a close frame.
	// OnClose follows with CloseAbnormal.
	OnError(err error)

	// OnClose is called once when the connection ends.
	OnClose(code int, reason string)
}

// Conn is an open connection.
type Conn interface {
	// Send writes a single text frame.
	Send(data []byte) error

	// Close sends a close frame with the given code and releases the
	// connection. It is safe to call more than once.
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	// Dial connects to url. ctx bounds the handshake only.
	Dial(ctx context.Context, url string, l Listener) (Conn, error)
}

// CloseAbnormal is reported when a connection ends without a close frame.
const CloseAbnormal = 1006

// ListenerFuncs adapts plain functions to a Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Message func(data []byte)
	Error   func(err error)
	Close   func(code int, reason string)
}

// OnMessage implements Listener.
func (l ListenerFuncs) OnMessage(data []byte) {
	if l.Message != nil {
		l.Message(data)
	}
}

// OnError implements Listener.
func (l ListenerFuncs) OnError(err error) {
	if l.Error != nil {
		l.Error(err)
	}
}

// OnClose implements Listener.
func (l ListenerFuncs) OnClose(code int, reason string) {
	if l.Close != nil {
		l.Close(code, reason)
	}
}
