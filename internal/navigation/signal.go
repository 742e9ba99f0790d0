// Package navigation carries "navigate to point" requests from producers to the mounted map.
package navigation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ensigniasec/mapview/internal/validate"
)

// ErrHandlerRegistered is returned when a second handler subscribes to a Signal.
var ErrHandlerRegistered = errors.New("navigation: handler already registered")

// Request asks the mounted map to fly to a point. It is transient and never persisted.
type Request struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
}

// Validate checks the coordinates are in range.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid navigation request: %w", err)
	}
	return nil
}

// Signal is a typed, single-handler channel for navigation requests.
// Producers call Emit; the mounted map subscribes for its lifetime.
type Signal struct {
	mu      sync.Mutex
	handler func(Request)
	gen     uint64
}

// NewSignal returns a signal with no handler.
func NewSignal() *Signal { return &Signal{} }

// Subscribe registers h until the returned cancel func is called.
// Cancel is idempotent and never removes a later subscriber.
func (s *Signal) Subscribe(h func(Request)) (func(), error) {
	if h == nil {
		return nil, errors.New("navigation: nil handler")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return nil, ErrHandlerRegistered
	}
	s.gen++
	gen := s.gen
	s.handler = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.handler = nil
		}
	}, nil
}

// Emit delivers req to the current handler, reporting whether one was registered.
// The handler runs on the caller's goroutine, outside the signal's lock.
func (s *Signal) Emit(req Request) bool {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h(req)
	return true
}

// Subscribed reports whether a handler is registered.
func (s *Signal) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil
}
