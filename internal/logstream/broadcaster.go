// Package logstream fans daemon log events out to subscribed connections.
// Each subscriber owns a bounded queue; when a slow consumer falls behind,
// its oldest events are dropped so logging never blocks the daemon.
package logstream

import (
	"sync"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// DefaultCapacity is the per-subscriber queue depth.
const DefaultCapacity = 100

// Broadcaster delivers each published event to every live subscriber.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	capacity int
}

// Subscription is one subscriber's bounded event queue. Read from Events
// until it is closed, and call Close when done.
type Subscription struct {
	b    *Broadcaster
	ch   chan types.LogEvent
	once sync.Once
}

// New returns a broadcaster with the given per-subscriber queue capacity;
// capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		subs:     make(map[*Subscription]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new queue that receives events published from now
// on.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{b: b, ch: make(chan types.LogEvent, b.capacity)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers e to every subscriber. A full queue sheds its oldest
// event to make room; Publish itself never blocks.
func (b *Broadcaster) Publish(e types.LogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		for {
			select {
			case sub.ch <- e:
			default:
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events is the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan types.LogEvent {
	return s.ch
}

// Close detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
		close(s.ch)
	})
}
