// Package sessionfeed delivers session-change notifications to subscribers.
//
// Events are delivered by a single goroutine in publish order, so handlers
// observe sign-in and sign-out transitions in the order they happened.
package sessionfeed

import (
	"sync"
	"time"
)

// EventType classifies a session change.
type EventType string

const (
	// SignedIn indicates a new session was issued.
	SignedIn EventType = "SIGNED_IN"
	// SignedOut indicates a session was revoked or terminated.
	SignedOut EventType = "SIGNED_OUT"
)

// Event describes one session change.
type Event struct {
	Type      EventType
	SessionID string
	UserID    string
	At        time.Time
}

// Feed fans session events out to registered handlers.
type Feed struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Event)
	events   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// New creates a feed and starts its delivery goroutine.
func New() *Feed {
	f := &Feed{
		handlers: make(map[int]func(Event)),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}
	f.wg.Add(1)
	go f.deliver()
	return f
}

func (f *Feed) deliver() {
	defer f.wg.Done()
	for {
		select {
		case event := <-f.events:
			f.mu.Lock()
			handlers := make([]func(Event), 0, len(f.handlers))
			for _, handler := range f.handlers {
				handlers = append(handlers, handler)
			}
			f.mu.Unlock()
			for _, handler := range handlers {
				handler(event)
			}
		case <-f.done:
			return
		}
	}
}

// Publish queues an event for delivery. Events published after Close are dropped.
func (f *Feed) Publish(event Event) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	select {
	case f.events <- event:
	case <-f.done:
	}
}

// Subscribe registers a handler and returns an unsubscribe function.
// The unsubscribe function is safe to call multiple times.
func (f *Feed) Subscribe(handler func(Event)) func() {
	if handler == nil {
		return func() {}
	}
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers, id)
			f.mu.Unlock()
		})
	}
}

// Close stops delivery and releases the feed's goroutine.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()
	close(f.done)
	f.wg.Wait()
}
