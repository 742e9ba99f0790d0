package viewport

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Controller is the single owned cell holding the active Viewport.
// It is safe for concurrent use, although the host only drives it from its event loop.
type Controller struct {
	mu          sync.Mutex
	current     Viewport
	live        bool
	userMoved   bool
	yieldToUser bool
	log         *logrus.Entry
}

// ControllerOption mutates Controller configuration.
type ControllerOption func(*Controller)

// WithUserPrecedence makes geolocation results that arrive after the first user move a no-op.
// Without it the later writer wins.
func WithUserPrecedence() ControllerOption {
	return func(c *Controller) { c.yieldToUser = true }
}

// WithControllerLogger sets the log entry used for diagnostics.
func WithControllerLogger(log *logrus.Entry) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController returns a live controller seeded with Initial().
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		current: Initial(),
		live:    true,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Viewport returns the active viewport.
func (c *Controller) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Apply reduces ev into the active viewport. It reports false, leaving state untouched,
// once the controller is released or when the event is ignored by policy.
func (c *Controller) Apply(ev Event) (Viewport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		c.log.WithField("event", eventName(ev)).Debug("viewport released; dropping event")
		return c.current, false
	}

	switch e := ev.(type) {
	case UserMoved:
		c.userMoved = true
	case GeolocationResolved:
		if c.yieldToUser && c.userMoved {
			c.log.WithField("outcome", e.Outcome.String()).Debug("user already moved the map; ignoring geolocation")
			return c.current, false
		}
		if !e.Outcome.OK() {
			if c.current == Initial() {
				c.log.WithField("outcome", e.Outcome.String()).Debug("geolocation unavailable; keeping fallback bounds")
			} else {
				c.log.WithField("outcome", e.Outcome.String()).Info("geolocation unavailable; falling back to max extent")
			}
		}
	}

	c.current = Reduce(c.current, ev)
	return c.current, true
}

// Live reports whether the controller still accepts events.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Release ends the controller's lifetime. Later events are dropped.
func (c *Controller) Release() {
	c.mu.Lock()
	c.live = false
	c.mu.Unlock()
}

func eventName(ev Event) string {
	switch ev.(type) {
	case GeolocationResolved:
		return "geolocation"
	case UserMoved:
		return "move"
	default:
		return "unknown"
	}
}
