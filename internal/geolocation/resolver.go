package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 5 * time.Second
	// staleTolerance absorbs clock granularity between the request start and a fresh fix.
	staleTolerance = 50 * time.Millisecond
)

// Options mirror the device API's position request options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is the oldest cached fix accepted; zero demands a fresh one.
	MaximumAge time.Duration
}

// DefaultOptions requests a fresh, high-accuracy fix within five seconds.
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: defaultTimeout, MaximumAge: 0}
}

// Position is a fix reported by a Locator.
type Position struct {
	Longitude float64
	Latitude  float64
	// Accuracy is the radius of uncertainty in metres, zero when unknown.
	Accuracy  float64
	Timestamp time.Time
}

// Locator is the device capability. Implementations should honour ctx cancellation
// but the Resolver does not rely on it.
type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, opts Options) (Position, error)

// CurrentPosition implements Locator.
func (f LocatorFunc) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	return f(ctx, opts)
}

// Resolver performs a single lookup per lifetime and memoises its outcome.
type Resolver struct {
	locator Locator
	opts    Options
	log     *logrus.Entry
	now     func() time.Time

	once    sync.Once
	outcome Outcome
}

// ResolverOption mutates Resolver configuration.
type ResolverOption func(*Resolver)

// WithOptions overrides the position request options.
func WithOptions(opts Options) ResolverOption {
	return func(r *Resolver) {
		if opts.Timeout <= 0 {
			opts.Timeout = defaultTimeout
		}
		r.opts = opts
	}
}

// WithLogger sets the log entry used for diagnostics.
func WithLogger(log *logrus.Entry) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// withClock replaces time.Now; used by tests.
func withClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver builds a Resolver. A nil locator means the host has no geolocation capability.
func NewResolver(locator Locator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		locator: locator,
		opts:    DefaultOptions(),
		log:     logrus.NewEntry(logrus.StandardLogger()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Options returns the request options in effect.
func (r *Resolver) Options() Options { return r.opts }

// Resolve performs the lookup on first call and returns the same outcome on every later call.
// It blocks until the locator answers or the timeout elapses.
func (r *Resolver) Resolve(ctx context.Context) Outcome {
	r.once.Do(func() {
		r.outcome = r.lookup(ctx)
		switch r.outcome.Kind {
		case Success:
			r.log.WithFields(logrus.Fields{"lon": r.outcome.Longitude, "lat": r.outcome.Latitude}).Debug("geolocation resolved")
		case Failure:
			r.log.WithError(r.outcome.Reason).Warn("error getting device location")
		case Unsupported:
			r.log.Warn("geolocation is not supported on this host")
		}
	})
	return r.outcome
}

func (r *Resolver) lookup(ctx context.Context) Outcome {
	if r.locator == nil {
		return NotSupported()
	}

	type result struct {
		pos Position
		err error
	}

	started := r.now()
	lctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	// Buffered so a locator that ignores ctx can still finish after we gave up.
	done := make(chan result, 1)
	go func() {
		pos, err := r.locator.CurrentPosition(lctx, r.opts)
		done <- result{pos: pos, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return Failed(ErrTimeout)
			}
			return Failed(res.err)
		}
		if r.stale(res.pos, started) {
			return Failed(ErrStalePosition)
		}
		return Succeeded(res.pos.Longitude, res.pos.Latitude)
	case <-lctx.Done():
		if errors.Is(lctx.Err(), context.DeadlineExceeded) {
			return Failed(ErrTimeout)
		}
		return Failed(lctx.Err())
	}
}

// stale reports whether a fix is older than the accepted maximum age.
func (r *Resolver) stale(pos Position, started time.Time) bool {
	if pos.Timestamp.IsZero() {
		return false
	}
	oldest := started.Add(-r.opts.MaximumAge - staleTolerance)
	return pos.Timestamp.Before(oldest)
}
