// Package admission gates how many in-flight tasks may share an
// agent/model/provider identity at once. It is a keyed counting semaphore
// with FIFO waiters: a release hands its slot directly to the
// longest-waiting acquirer, so no slot sits idle while a waiter is queued.
package admission

import (
	"context"
	"strings"
	"sync"
)

// DefaultLimit is the global fallback capacity per admission key.
const DefaultLimit = 3

// Limits configures per-key capacities. Resolution order for a key is
// explicit model limit, then provider limit, then Default.
type Limits struct {
	// Models maps a full admission key (e.g. "anthropic/claude-sonnet-4")
	// to its capacity.
	Models map[string]int
	// Providers maps a provider prefix (the part of the key before the
	// first "/") to its capacity.
	Providers map[string]int
	// Default is the global fallback. Zero means DefaultLimit.
	Default int
}

// capacityFor resolves the capacity for a key.
func (l Limits) capacityFor(key string) int {
	if n, ok := l.Models[key]; ok && n > 0 {
		return n
	}
	if provider, _, ok := strings.Cut(key, "/"); ok {
		if n, ok := l.Providers[provider]; ok && n > 0 {
			return n
		}
	}
	if l.Default > 0 {
		return l.Default
	}
	return DefaultLimit
}

// Controller is the keyed admission semaphore. Keys never interact:
// exhausting one key does not block another.
type Controller struct {
	mu      sync.Mutex
	limits  Limits
	held    map[string]int
	waiters map[string][]chan struct{}
}

// NewController creates a Controller with the given limits.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:  limits,
		held:    make(map[string]int),
		waiters: make(map[string][]chan struct{}),
	}
}

// Acquire blocks until a slot under key is free, then claims it.
// It returns ctx.Err() if the context is cancelled while waiting; a slot
// granted concurrently with cancellation is passed on to the next waiter.
func (c *Controller) Acquire(ctx context.Context, key string) error {
	c.mu.Lock()
	if c.held[key] < c.limits.capacityFor(key) {
		c.held[key]++
		c.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	c.waiters[key] = append(c.waiters[key], ready)
	c.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		select {
		case <-ready:
			// Granted between cancellation and locking: hand the slot on.
			c.releaseLocked(key)
			c.mu.Unlock()
		default:
			c.removeWaiterLocked(key, ready)
			c.mu.Unlock()
		}
		return ctx.Err()
	}
}

// TryAcquire claims a slot under key without blocking.
// Returns false if the key is at capacity.
func (c *Controller) TryAcquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[key] >= c.limits.capacityFor(key) {
		return false
	}
	c.held[key]++
	return true
}

// Release frees one slot under key. If waiters are queued the slot goes
// directly to the longest-waiting one. Releasing a key with no outstanding
// holds is a no-op; the count never goes negative.
func (c *Controller) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(key)
}

// releaseLocked frees a slot with c.mu held.
func (c *Controller) releaseLocked(key string) {
	if queue := c.waiters[key]; len(queue) > 0 {
		// Direct handoff: the held count is unchanged, the slot moves
		// straight to the front waiter.
		ready := queue[0]
		c.waiters[key] = queue[1:]
		if len(c.waiters[key]) == 0 {
			delete(c.waiters, key)
		}
		close(ready)
		return
	}
	if c.held[key] > 0 {
		c.held[key]--
		if c.held[key] == 0 {
			delete(c.held, key)
		}
	}
}

// removeWaiterLocked drops a cancelled waiter from the FIFO queue.
func (c *Controller) removeWaiterLocked(key string, ready chan struct{}) {
	queue := c.waiters[key]
	for i, ch := range queue {
		if ch == ready {
			c.waiters[key] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	if len(c.waiters[key]) == 0 {
		delete(c.waiters, key)
	}
}

// Held returns the number of slots currently held under key.
func (c *Controller) Held(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held[key]
}

// Waiting returns the number of queued acquirers for key.
func (c *Controller) Waiting(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters[key])
}
