package events

import (
	"sync"

	"github.com/jscyril/golang_turntable/api"
)

// Handler is a synchronous event callback
type Handler func(api.Event)

// Subscription identifies a registered handler so it can be removed
type Subscription struct {
	eventType api.EventType
	id        uint64
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// EventBus distributes events two ways. Handlers registered with On run
// synchronously inside Emit on the caller's goroutine, in registration
// order. Channels returned by Subscribe receive events from Publish without
// blocking the publisher; backend goroutines use this path.
type EventBus struct {
	subscribers map[api.EventType][]chan api.Event
	handlers    map[api.EventType][]handlerEntry
	nextID      uint64
	closed      bool
	mu          sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[api.EventType][]chan api.Event),
		handlers:    make(map[api.EventType][]handlerEntry),
	}
}

// On registers a handler for the given event type
func (b *EventBus) On(eventType api.EventType, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], handlerEntry{id: id, fn: fn})
	return Subscription{eventType: eventType, id: id}
}

// Off removes a handler registered with On. Removing twice is a no-op.
func (b *EventBus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.eventType]
	for i, e := range entries {
		if e.id == sub.id {
			next := make([]handlerEntry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			b.handlers[sub.eventType] = next
			return
		}
	}
}

// Emit invokes every handler for the event's type before returning. The
// handler list is snapshotted first, so handlers may register or remove
// handlers (or emit further events) without deadlocking.
func (b *EventBus) Emit(event api.Event) {
	b.mu.RLock()
	entries := b.handlers[event.Type]
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	b.mu.RUnlock()

	for _, e := range snapshot {
		e.fn(event)
	}
}

// Subscribe returns a channel for receiving events of the specified type
func (b *EventBus) Subscribe(eventType api.EventType) <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Event, 16)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel for receiving all backend event types
func (b *EventBus) SubscribeAll() <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Event, 32)
	for _, eventType := range []api.EventType{
		api.EventStateChange,
		api.EventTrackEnded,
		api.EventError,
	} {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

// Publish broadcasts an event to all channel subscribers of that event type
func (b *EventBus) Publish(event api.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, drop rather than block the backend
		}
	}
}

// Unsubscribe removes a subscriber channel
func (b *EventBus) Unsubscribe(ch <-chan api.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Close closes all subscriber channels and drops every handler
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	// SubscribeAll channels appear under several types
	closed := make(map[chan api.Event]bool)
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[api.EventType][]chan api.Event)
	b.handlers = make(map[api.EventType][]handlerEntry)
}
