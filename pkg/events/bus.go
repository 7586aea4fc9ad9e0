// Package events provides typed, ordered subscriber lists.
package events

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// Bus fans a value out to its subscribers in registration order.
// The zero value is ready to use.
type Bus[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// PanicError is a panic recovered from a subscriber.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("events: subscriber panicked: %v", e.Value)
}

// Emit calls every subscriber with v, synchronously and in order.
// Subscribers added or removed during Emit take effect on the next call.
//
// A panicking subscriber does not stop the others. Recovered panics are
// returned joined, each as a *PanicError.
func (b *Bus[T]) Emit(v T) error {
	b.mu.Lock()
	snapshot := b.listeners
	b.mu.Unlock()

	var errs []error
	for _, l := range snapshot {
		if err := call(l.fn, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func call[T any](fn func(T), v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn(v)
	return nil
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Clear removes every subscriber.
func (b *Bus[T]) Clear() {
	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
}
