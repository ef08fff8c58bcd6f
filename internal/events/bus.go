package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	types   map[EventType]bool // nil means every type
	handler Handler
}

// Bus dispatches events synchronously to subscribers.
// Handlers run on the publisher's goroutine and must not block.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	log    zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log: log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for the given types, or every type when none are given.
// The returned function removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...EventType) func() {
	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, types: filter, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers event to every matching subscriber
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if s.types != nil && !s.types[event.Type] {
			continue
		}
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	s.handler(event)
}
