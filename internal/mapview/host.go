package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/geolocation"
	"github.com/ensigniasec/mapview/internal/metrics"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/viewport"
)

// ErrAlreadyMounted is returned by a second Mount on the same Host.
var ErrAlreadyMounted = errors.New("map already mounted")

// Host is the composition root: it owns the engine reference and wires the viewport
// controller, the boundary enforcer and the navigation bridge around it.
type Host struct {
	id       string
	engine   Engine
	notifier Notifier
	styleURL string
	resolver *geolocation.Resolver
	signal   *navigation.Signal
	schedule Scheduler
	metrics  *metrics.Metrics
	log      *logrus.Entry

	controllerOpts []viewport.ControllerOption

	controller *viewport.Controller
	enforcer   *BoundaryEnforcer
	bridge     *NavigationBridge

	mu          sync.Mutex
	mounted     bool
	unmountOnce sync.Once
	unsubMove   func()
	cancel      context.CancelFunc
	located     chan struct{}
	locatedOnce sync.Once
}

// HostOption mutates Host configuration.
type HostOption func(*Host)

// WithStyleURL sets the style handed to the engine at construction.
func WithStyleURL(u string) HostOption {
	return func(h *Host) { h.styleURL = u }
}

// WithResolver sets the geolocation resolver. Without one the host behaves as if
// the device had no geolocation capability.
func WithResolver(r *geolocation.Resolver) HostOption {
	return func(h *Host) { h.resolver = r }
}

// WithSignal sets the navigation signal the bridge subscribes to while mounted.
func WithSignal(s *navigation.Signal) HostOption {
	return func(h *Host) { h.signal = s }
}

// WithScheduler sets how background results reach the event loop. Defaults to Inline.
func WithScheduler(s Scheduler) HostOption {
	return func(h *Host) {
		if s != nil {
			h.schedule = s
		}
	}
}

// WithMetrics records lifecycle counters.
func WithMetrics(m *metrics.Metrics) HostOption {
	return func(h *Host) { h.metrics = m }
}

// WithLogger sets the parent log entry; the host adds a mount id.
func WithLogger(log *logrus.Entry) HostOption {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// WithUserPrecedence ignores geolocation results that arrive after the user moved the map.
func WithUserPrecedence() HostOption {
	return func(h *Host) { h.controllerOpts = append(h.controllerOpts, viewport.WithUserPrecedence()) }
}

// NewHost builds an unmounted host around engine. The viewport starts at the fallback bounds.
func NewHost(engine Engine, notifier Notifier, opts ...HostOption) *Host {
	h := &Host{
		id:       uuid.NewString(),
		engine:   engine,
		notifier: notifier,
		schedule: Inline,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		located:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("mount", h.id)
	if h.resolver == nil {
		h.resolver = geolocation.NewResolver(nil, geolocation.WithLogger(h.log))
	}

	h.controller = viewport.NewController(append(h.controllerOpts, viewport.WithControllerLogger(h.log))...)
	h.enforcer = NewBoundaryEnforcer(geo.MaxExtent(), h.log, h.metrics)
	h.bridge = NewNavigationBridge(engine, notifier, h.schedule, h.log, h.metrics)
	return h
}

// ID identifies this mount in logs.
func (h *Host) ID() string { return h.id }

// Viewport returns the active viewport for rendering.
func (h *Host) Viewport() viewport.Viewport { return h.controller.Viewport() }

// Boundary exposes the enforcer's state.
func (h *Host) Boundary() *BoundaryEnforcer { return h.enforcer }

// Located is closed once the geolocation outcome has been handled or dropped.
func (h *Host) Located() <-chan struct{} { return h.located }

// Mount constructs the engine with the fallback viewport, attaches the load, move and
// navigation subscriptions and starts the geolocation lookup in the background.
func (h *Host) Mount(ctx context.Context) error {
	h.mu.Lock()
	if h.mounted {
		h.mu.Unlock()
		return ErrAlreadyMounted
	}
	h.mounted = true
	h.mu.Unlock()

	if h.signal != nil {
		if err := h.bridge.Attach(h.signal); err != nil {
			h.mountFailed()
			return fmt.Errorf("attach navigation: %w", err)
		}
	}

	initial := h.controller.Viewport()
	if err := guard("construct", func() error { return h.engine.Construct(h.styleURL, initial) }); err != nil {
		h.bridge.Detach()
		h.mountFailed()
		return fmt.Errorf("construct map: %w", err)
	}
	h.log.WithField("viewport", initial.String()).Debug("map constructed")

	unsubMove := h.engine.OnMove(h.onMove)
	h.enforcer.Attach(h.engine)

	lctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.unsubMove = unsubMove
	h.cancel = cancel
	h.mu.Unlock()

	h.metrics.Mounted(1)
	go h.locate(lctx)
	return nil
}

// mountFailed lets a failed Mount be retried and keeps Unmount from counting it.
func (h *Host) mountFailed() {
	h.mu.Lock()
	h.mounted = false
	h.mu.Unlock()
}

func (h *Host) locate(ctx context.Context) {
	out := h.resolver.Resolve(ctx)
	h.metrics.GeolocationOutcome(out.Kind.String())
	h.schedule(func() { h.applyLocation(out) })
}

// applyLocation runs on the event loop.
func (h *Host) applyLocation(out geolocation.Outcome) {
	defer h.locatedOnce.Do(func() { close(h.located) })

	v, ok := h.controller.Apply(viewport.GeolocationResolved{Outcome: out})
	if !ok {
		return
	}
	if err := guard("set viewport", func() error { return h.engine.SetViewport(v) }); err != nil {
		h.log.WithError(err).Warn("could not apply geolocated viewport")
	}
}

// onMove runs on the event loop for every renderer-reported move.
func (h *Host) onMove(v viewport.Viewport) {
	h.controller.Apply(viewport.UserMoved{Viewport: v})
}

// Unmount releases every subscription and makes late results no-ops.
// It is idempotent and safe before Mount or before the engine ever loaded.
func (h *Host) Unmount() {
	h.unmountOnce.Do(func() {
		h.mu.Lock()
		cancel, unsubMove, mounted := h.cancel, h.unsubMove, h.mounted
		h.cancel, h.unsubMove = nil, nil
		h.mu.Unlock()

		h.controller.Release()
		h.enforcer.Release()
		h.bridge.Detach()
		if unsubMove != nil {
			unsubMove()
		}
		if cancel != nil {
			cancel()
		}
		if mounted {
			h.metrics.Mounted(-1)
		}
		h.log.Debug("map unmounted")
	})
}
