// Package events fans change notifications out to every connected observer.
//
// Delivery is best-effort and at-most-once: each mutation also returns its
// resulting state to the caller, and observers reconcile with a full
// reload, so a missed notification costs one extra reload and never an
// incorrect final state.
package events

import (
	"sync"

	"github.com/louisbranch/sharelist/internal/storage"
)

// Kind tags one change notification.
type Kind string

const (
	KindConnected          Kind = "connected"
	KindItemAdded          Kind = "item-added"
	KindItemUpdated        Kind = "item-updated"
	KindItemToggled        Kind = "item-toggled"
	KindItemDeleted        Kind = "item-deleted"
	KindItemsReordered     Kind = "items-reordered"
	KindItemsBulkCompleted Kind = "items-bulk-completed"
	KindItemsBulkDeleted   Kind = "items-bulk-deleted"
)

// Notification is one ephemeral change message. Bulk and reorder kinds
// carry no item payload.
type Notification struct {
	Kind Kind
	Item *storage.Item
}

// subscriptionBuffer bounds how far one observer may lag before it is
// treated as dead and removed.
const subscriptionBuffer = 16

// Subscription is one observer's handle on the broker.
type Subscription struct {
	mu     sync.Mutex
	closed bool
	ch     chan Notification
}

// Notifications returns the observer's delivery channel. It is closed when
// the subscription is removed from the broker.
func (s *Subscription) Notifications() <-chan Notification {
	return s.ch
}

// deliver enqueues one notification without blocking. It reports false when
// the subscription is closed or its buffer is full.
func (s *Subscription) deliver(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- n:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Broker is the in-process observer registry. Registry lifetime is process
// lifetime: on restart all observers are dropped and must resubscribe.
type Broker struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[*Subscription]struct{})}
}

// Subscribe registers a new observer and immediately queues a connected
// notification on it.
func (b *Broker) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Notification, subscriptionBuffer)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	sub.deliver(Notification{Kind: KindConnected})
	return sub
}

// Unsubscribe removes the observer and closes its channel. It is safe to
// call repeatedly and after the observer has already been removed.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	sub.close()
}

// Publish delivers the notification to every registered observer. Delivery
// preserves publish order per observer; an observer whose buffer is full is
// removed so one dead connection never blocks the rest.
func (b *Broker) Publish(n Notification) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.deliver(n) {
			b.Unsubscribe(sub)
		}
	}
}

// ObserverCount returns the number of currently registered observers.
func (b *Broker) ObserverCount() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
