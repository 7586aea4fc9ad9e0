package gateway

import (
	"context"
	"sync"
)

// pendingConnect is a one-shot result shared by every Connect caller of
// a single connection attempt.
type pendingConnect struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newPendingConnect() *pendingConnect {
	return &pendingConnect{done: make(chan struct{})}
}

func resolvedConnect(err error) *pendingConnect {
	p := newPendingConnect()
	p.resolve(err)
	return p
}

// resolve settles the attempt. Only the first call has an effect.
func (p *pendingConnect) resolve(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// wait blocks until the attempt settles, ctx ends, or the manager stops.
func (p *pendingConnect) wait(ctx context.Context, stopped <-chan struct{}) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		select {
		case <-p.done:
			return p.err
		default:
			return ErrManagerDestroyed
		}
	}
}
