package client

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/vango-dev/vgate/pkg/protocol"
)

// HandlerFunc handles the body of one dispatch event.
type HandlerFunc func(c *Client, data json.RawMessage) error

// Router maps dispatch event names to handlers. Events without a handler
// are ignored.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRouter creates a router with the built-in handlers.
func NewRouter() *Router {
	r := &Router{handlers: make(map[string]HandlerFunc)}
	r.Handle(protocol.EventMessageCreate, MessageCreate)
	return r
}

// Handle registers fn for event, replacing any previous handler.
func (r *Router) Handle(event string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = fn
}

// Remove unregisters the handler for event.
func (r *Router) Remove(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// Lookup returns the handler for event.
func (r *Router) Lookup(event string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[event]
	return fn, ok
}

// Events returns the handled event names in sorted order.
func (r *Router) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
