// Package stream provides the in-process publish/subscribe primitives the
// refresh orchestrator publishes through.
package stream

import "sync"

// Broadcaster fans values out to every live subscriber. It is hot: a
// subscriber only sees values published after it subscribed, nothing is
// replayed. Publish never blocks; a subscriber whose buffer is full misses
// that value.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	buffer int
	closed bool
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold up to
// buffer pending values.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers v to all current subscribers without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Subscriber is not keeping up; it misses this value.
		}
	}
}

// Close terminates all subscriptions. Further publishes are dropped and
// further subscribes return a closed channel.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
