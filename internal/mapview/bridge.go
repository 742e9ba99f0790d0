package mapview

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/metrics"
	"github.com/ensigniasec/mapview/internal/navigation"
)

const (
	// NavigationZoom is the zoom every navigation request flies to.
	NavigationZoom = 14
	// NavigationErrorMessage is shown when a fly-to cannot be started.
	NavigationErrorMessage = "Unexpected error while attempting map navigation"
)

// NavigationBridge turns navigation requests into fly-to animations.
// Requests are neither queued nor debounced; each one retargets the engine.
type NavigationBridge struct {
	engine   Engine
	notifier Notifier
	schedule Scheduler
	log      *logrus.Entry
	metrics  *metrics.Metrics

	mu       sync.Mutex
	attached bool
	cancel   func()
}

// NewNavigationBridge builds a detached bridge. A nil schedule runs requests inline.
func NewNavigationBridge(e Engine, n Notifier, schedule Scheduler, log *logrus.Entry, m *metrics.Metrics) *NavigationBridge {
	if schedule == nil {
		schedule = Inline
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &NavigationBridge{engine: e, notifier: n, schedule: schedule, log: log, metrics: m}
}

// Attach subscribes to sig. It fails if sig already has a handler.
func (n *NavigationBridge) Attach(sig *navigation.Signal) error {
	cancel, err := sig.Subscribe(n.handle)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.attached = true
	n.cancel = cancel
	n.mu.Unlock()
	return nil
}

// Detach drops the subscription; requests already scheduled become no-ops. Idempotent.
func (n *NavigationBridge) Detach() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.attached = false
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (n *NavigationBridge) isAttached() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attached
}

func (n *NavigationBridge) handle(req navigation.Request) {
	n.schedule(func() { n.navigate(req) })
}

// navigate runs on the event loop.
func (n *NavigationBridge) navigate(req navigation.Request) {
	if !n.isAttached() {
		return
	}
	log := n.log.WithFields(logrus.Fields{"lat": req.Latitude, "lng": req.Longitude})
	log.Debug("executing navigation request")

	opts := FlyToOptions{Center: geo.LngLat{req.Longitude, req.Latitude}, Zoom: NavigationZoom}
	err := guard("fly to", func() error { return n.engine.FlyTo(opts) })
	n.metrics.Navigation(err)
	if err != nil {
		log.WithError(err).Error("map navigation failed")
		if n.notifier != nil {
			n.notifier.Notify(SeverityError, NavigationErrorMessage)
		}
	}
}
