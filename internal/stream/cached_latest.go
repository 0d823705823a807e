package stream

import "sync"

// CachedLatest wraps a Broadcaster and additionally remembers the most
// recently published value. Subscriptions stay hot (no replay); callers
// wanting the last value ask for it explicitly via Latest.
type CachedLatest[T any] struct {
	b      *Broadcaster[T]
	mu     sync.RWMutex
	latest T
	ok     bool
}

func NewCachedLatest[T any](buffer int) *CachedLatest[T] {
	return &CachedLatest[T]{b: NewBroadcaster[T](buffer)}
}

func (c *CachedLatest[T]) Publish(v T) {
	c.mu.Lock()
	c.latest = v
	c.ok = true
	c.mu.Unlock()

	c.b.Publish(v)
}

// Latest returns the most recently published value, if any.
func (c *CachedLatest[T]) Latest() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.ok
}

func (c *CachedLatest[T]) Subscribe() (<-chan T, func()) {
	return c.b.Subscribe()
}

func (c *CachedLatest[T]) Close() {
	c.b.Close()
}
