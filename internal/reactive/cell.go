// Package reactive provides observable state cells shared between providers and their consumers.
//
// A [Cell] holds one value. Writers call [Cell.Set]; readers either poll [Cell.Get] or register a
// listener with [Cell.Subscribe]. Listeners run on the writer's goroutine, after the lock is released,
// in registration order.
package reactive

import (
	"sync"
)

// Cell is a mutex-guarded value with change listeners. The zero value is not usable; see [NewCell].
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	version   uint64
	nextID    int
	listeners map[int]func(T, uint64)
	order     []int
}

// NewCell creates a cell holding initial at version zero.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, listeners: make(map[int]func(T, uint64))}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Load returns the current value with its version. The version increments on every Set.
func (c *Cell[T]) Load() (T, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.version
}

// Set stores value and notifies listeners.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	c.version++
	version := c.version
	fns := c.snapshot()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(value, version)
	}
}

// Subscribe registers fn for future changes and returns a function removing it.
// The current value is not replayed.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return c.SubscribeVersion(func(v T, _ uint64) { fn(v) })
}

// SubscribeVersion is [Cell.Subscribe] with the version of each value.
//
// Concurrent writers may deliver out of order, and a [Cell.Load] made right after subscribing can
// be older than a value already delivered. Followers keep the highest version seen and drop the rest.
func (c *Cell[T]) SubscribeVersion(fn func(T, uint64)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Cell[T]) snapshot() []func(T, uint64) {
	fns := make([]func(T, uint64), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.listeners[id])
	}
	return fns
}
