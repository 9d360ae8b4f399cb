// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Guard wraps a Mutex around a value with scoped lock helpers.
type Guard[T any] struct {
	mu    sync.Mutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Write executes fn while holding the lock, fn receives pointer for mutation.
func (g *Guard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// Get returns a copy of the value (T should be value type or immutable).
func (g *Guard[T]) Get() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Set atomically replaces the value.
func (g *Guard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Swap atomically replaces and returns old value.
func (g *Guard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	return old
}

// Flag is a boolean raised from one goroutine and consumed by another.
type Flag struct {
	g Guard[bool]
}

// Raise sets the flag. Raising an already raised flag is a no-op.
func (f *Flag) Raise() { f.g.Set(true) }

// Raised reports the flag without clearing it.
func (f *Flag) Raised() bool { return f.g.Get() }

// Consume clears the flag and reports whether it was raised.
func (f *Flag) Consume() bool { return f.g.Swap(false) }
