package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterFanOut(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int](4)
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(42)

	assert.Equal(t, 42, <-ch1)
	assert.Equal(t, 42, <-ch2)
}

func TestBroadcasterNoReplay(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[string](4)
	b.Publish("before")

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish("after")
	assert.Equal(t, "after", <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %q", v)
	default:
	}
}

func TestBroadcasterCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int](4)
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // safe to call twice

	b.Publish(1)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroadcasterSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int](1)
	ch, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Only the buffered value survives.
	assert.Equal(t, 0, <-ch)
}

func TestBroadcasterClose(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster[int](1)
	ch, _ := b.Subscribe()

	b.Close()
	b.Close() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// Subscribing after close yields a closed channel.
	ch2, cancel2 := b.Subscribe()
	defer cancel2()
	_, open = <-ch2
	assert.False(t, open)
}

func TestBroadcasterConcurrentPublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrent test in short mode")
	}
	t.Parallel()

	b := NewBroadcaster[int](16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := b.Subscribe()
			defer cancel()
			for j := 0; j < 10; j++ {
				b.Publish(j)
			}
			// Drain whatever arrived.
			for {
				select {
				case <-ch:
				default:
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCachedLatest(t *testing.T) {
	t.Parallel()

	c := NewCachedLatest[string](4)

	_, ok := c.Latest()
	require.False(t, ok)

	c.Publish("first")
	c.Publish("second")

	v, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "second", v)

	// Subscriptions remain hot: no replay of "second".
	ch, cancel := c.Subscribe()
	defer cancel()
	c.Publish("third")
	assert.Equal(t, "third", <-ch)

	v, _ = c.Latest()
	assert.Equal(t, "third", v)
}
