package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 2 * time.Second

// Metrics records map lifecycle counters on its own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	geolocation *prometheus.CounterVec
	boundary    *prometheus.CounterVec
	navigation  *prometheus.CounterVec
	mounts      prometheus.Gauge
}

// New creates a fresh registry with the mapview counters registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	geolocation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "geolocation_outcomes_total",
		Help:      "Geolocation lookups by outcome",
	}, []string{"outcome"})

	boundary := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "boundary_arm_total",
		Help:      "Max-bounds clamp installations by result",
	}, []string{"result"})

	navigation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "navigation_requests_total",
		Help:      "Navigate-to-point requests by result",
	}, []string{"result"})

	mounts := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Name:      "mounted_maps",
		Help:      "Maps currently mounted",
	})

	registry.MustRegister(geolocation, boundary, navigation, mounts)

	return &Metrics{
		registry:    registry,
		geolocation: geolocation,
		boundary:    boundary,
		navigation:  navigation,
		mounts:      mounts,
	}
}

// GeolocationOutcome counts one resolved lookup.
func (m *Metrics) GeolocationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.geolocation.WithLabelValues(outcome).Inc()
}

// BoundaryArmed counts one clamp installation attempt.
func (m *Metrics) BoundaryArmed(err error) {
	if m == nil {
		return
	}
	m.boundary.WithLabelValues(result(err)).Inc()
}

// Navigation counts one handled navigation request.
func (m *Metrics) Navigation(err error) {
	if m == nil {
		return
	}
	m.navigation.WithLabelValues(result(err)).Inc()
}

// Mounted tracks the number of mounted maps.
func (m *Metrics) Mounted(delta float64) {
	if m == nil {
		return
	}
	m.mounts.Add(delta)
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
