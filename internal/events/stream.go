package events

import (
	"sync"
)

// Stream is a value-carrying pub/sub primitive: it always holds a latest
// value, and registered channels are notified on every Set. New listeners
// immediately receive the current value so they never start from a blank
// state. T is the value type carried by the stream.
type Stream[T any] struct {
	mu       sync.RWMutex
	value    T
	channels map[uint64]chan<- T
	nextID   uint64
}

// NewStream creates a Stream holding the given initial value.
func NewStream[T any](initial T) *Stream[T] {
	return &Stream[T]{
		value:    initial,
		channels: make(map[uint64]chan<- T),
	}
}

// Latest returns the most recently set value.
func (s *Stream[T]) Latest() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores a new value and notifies all registered channels.
// Sends are non-blocking - a listener whose channel is full misses the
// update but will observe the value via Latest or a later notification.
func (s *Stream[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	channelsCopy := make(map[uint64]chan<- T, len(s.channels))
	for id, ch := range s.channels {
		channelsCopy[id] = ch
	}
	s.mu.Unlock()

	// Send outside the lock so a slow listener cannot stall Set callers
	for _, ch := range channelsCopy {
		select {
		case ch <- value:
		default:
			// Channel is full, skip this listener
		}
	}
}

// Listen registers a channel to receive values on every Set. The current
// value is sent immediately (non-blocking). Returns a deregistration
// function that removes the listener.
func (s *Stream[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.channels[id] = ch
	current := s.value
	s.mu.Unlock()

	select {
	case ch <- current:
	default:
	}

	return func() {
		s.mu.Lock()
		delete(s.channels, id)
		s.mu.Unlock()
	}
}

// ListenerCount returns the current number of registered listeners.
// This is useful for testing and debugging.
func (s *Stream[T]) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}
