// Package mapview wires the viewport state machine around a rendering engine.
package mapview

import (
	"errors"
	"fmt"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/viewport"
)

// ErrNotLoaded is returned by engines asked to animate before their load signal.
var ErrNotLoaded = errors.New("map not loaded")

// FlyToOptions is the target of an animated transition.
type FlyToOptions struct {
	Center geo.LngLat
	Zoom   float64
}

// Engine is the rendering engine collaborator. Subscriptions return a func that detaches them.
type Engine interface {
	Construct(styleURL string, initial viewport.Viewport) error
	OnLoad(fn func()) (unsubscribe func())
	OnMove(fn func(viewport.Viewport)) (unsubscribe func())
	SetMaxBounds(bounds geo.EngineBounds) error
	FlyTo(opts FlyToOptions) error
	// SetViewport jumps to v without animation and without reporting a move.
	SetViewport(v viewport.Viewport) error
}

// Severity classifies a user-visible notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Notifier is the transient notification surface.
type Notifier interface {
	Notify(severity Severity, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Severity, string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(s Severity, msg string) { f(s, msg) }

// Scheduler runs fn on the map's event loop. It must not be called from that loop.
type Scheduler func(fn func())

// Inline runs fn immediately on the caller's goroutine.
func Inline(fn func()) { fn() }

// guard calls fn and converts a panic from the collaborator into an error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: engine panic: %v", op, r)
		}
	}()
	return fn()
}
