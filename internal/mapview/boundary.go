package mapview

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/metrics"
)

// ArmState is the BoundaryEnforcer lifecycle.
type ArmState int

const (
	Unarmed ArmState = iota
	Armed
)

func (s ArmState) String() string {
	if s == Armed {
		return "armed"
	}
	return "unarmed"
}

// BoundaryEnforcer installs the max-bounds clamp exactly once, on the engine's load signal.
// A failed install is logged and never retried.
type BoundaryEnforcer struct {
	extent  geo.BoundingBox
	log     *logrus.Entry
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    ArmState
	released bool
	detach   func()
	lastErr  error
}

// NewBoundaryEnforcer returns an Unarmed enforcer for extent.
func NewBoundaryEnforcer(extent geo.BoundingBox, log *logrus.Entry, m *metrics.Metrics) *BoundaryEnforcer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BoundaryEnforcer{extent: extent, log: log, metrics: m}
}

// Attach subscribes to e's load signal. Calling it again, or after Release, does nothing.
func (b *BoundaryEnforcer) Attach(e Engine) {
	b.mu.Lock()
	if b.detach != nil || b.released {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	detach := e.OnLoad(func() { b.arm(e) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		detach()
		return
	}
	b.detach = detach
}

func (b *BoundaryEnforcer) arm(e Engine) {
	b.mu.Lock()
	if b.released || b.state == Armed {
		b.mu.Unlock()
		return
	}
	b.state = Armed
	b.mu.Unlock()

	bounds := geo.Convert(b.extent)
	b.log.Info("map loaded, setting max bounds")
	err := guard("set max bounds", func() error { return e.SetMaxBounds(bounds) })

	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	b.metrics.BoundaryArmed(err)
	if err != nil {
		b.log.WithError(err).Error("error setting max bounds; map left unclamped")
		return
	}
	b.log.WithField("bounds", b.extent.String()).Info("max bounds set")
}

// State returns the current lifecycle state.
func (b *BoundaryEnforcer) State() ArmState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error from the arming attempt, if any.
func (b *BoundaryEnforcer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Release detaches the load subscription. It is idempotent and safe before arming.
func (b *BoundaryEnforcer) Release() {
	b.mu.Lock()
	detach := b.detach
	b.detach = nil
	b.released = true
	b.mu.Unlock()
	if detach != nil {
		detach()
	}
}
