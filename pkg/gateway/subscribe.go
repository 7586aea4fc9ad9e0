package gateway

import "github.com/vango-dev/vgate/pkg/protocol"

// Subscribers run on the event loop in registration order. Each On method
// returns a function that removes the subscriber.

// OnReady subscribes to the READY lifecycle event.
func (m *Manager) OnReady(fn func(*protocol.Ready)) (unsubscribe func()) {
	return m.readyBus.Subscribe(fn)
}

// OnResumed subscribes to the RESUMED lifecycle event.
func (m *Manager) OnResumed(fn func()) (unsubscribe func()) {
	return m.resumedBus.Subscribe(func(struct{}) { fn() })
}

// OnDispatch subscribes to every dispatch, READY and RESUMED included,
// in the order the gateway sent them.
func (m *Manager) OnDispatch(fn func(*protocol.Envelope)) (unsubscribe func()) {
	return m.dispatchBus.Subscribe(fn)
}

// OnDebug subscribes to human-readable progress messages.
func (m *Manager) OnDebug(fn func(string)) (unsubscribe func()) {
	return m.debugBus.Subscribe(fn)
}

// OnError subscribes to non-fatal and fatal errors: malformed frames,
// failed dials, exhausted reconnects and authentication failures.
func (m *Manager) OnError(fn func(error)) (unsubscribe func()) {
	return m.errorBus.Subscribe(fn)
}
