// Package status fans engine events out to passive listeners such as the
// console printer and the due-checker.
package status

import (
	"slices"
	"sync"

	"github.com/hammamikhairi/announcer/internal/domain"
)

// Compile-time interface check.
var _ domain.EventPublisher = (*Bus)(nil)

// Handler receives events. Handlers run on the publisher's goroutine and
// should return quickly.
type Handler func(ev domain.Event)

type subscriber struct {
	id      string
	handler Handler
}

// Bus delivers every published event to all subscribers in subscription
// order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler under id, replacing any handler already
// registered with that id.
func (b *Bus) Subscribe(id string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Publish reads a snapshot of subs, so never write through it.
	subs := slices.Clone(b.subs)
	for i, s := range subs {
		if s.id == id {
			subs[i].handler = handler
			b.subs = subs
			return
		}
	}
	b.subs = append(subs, subscriber{id: id, handler: handler})
}

// Unsubscribe removes the subscriber with the given id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish sends ev to every subscriber. Handlers may subscribe or
// unsubscribe; the change applies from the next event.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ev)
	}
}
