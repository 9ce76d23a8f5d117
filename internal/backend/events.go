package backend

import (
	"sync"
	"time"

	id "inclusao/pkg/domain"
)

// EventKind is an auth-state change.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

type AuthEvent struct {
	Kind        EventKind
	UserID      id.UserID
	AccessToken string
	At          time.Time
}

// subscriptionBuffer is the per-subscriber queue length. Publish drops
// events for a subscriber whose queue is full rather than block the caller.
const subscriptionBuffer = 32

// Broker fans auth events out to subscribers.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscribe opens a subscription. On a closed broker the returned
// subscription is already finished.
func (b *Broker) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan AuthEvent, subscriptionBuffer), broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every subscriber without blocking. It reports how
// many subscribers received it.
func (b *Broker) Publish(ev AuthEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Close finishes every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.finish()
	}
	b.subs = nil
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.finish()
	}
}

// Subscription receives auth events until Unsubscribe.
type Subscription struct {
	ch     chan AuthEvent
	broker *Broker
	done   bool // guarded by broker.mu
}

// Events is closed after Unsubscribe or when the broker closes.
func (s *Subscription) Events() <-chan AuthEvent {
	return s.ch
}

// Unsubscribe is idempotent.
func (s *Subscription) Unsubscribe() {
	s.broker.remove(s)
}

func (s *Subscription) finish() {
	if !s.done {
		s.done = true
		close(s.ch)
	}
}
