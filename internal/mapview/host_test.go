package mapview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/geolocation"
	"github.com/ensigniasec/mapview/internal/metrics"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/viewport"
)

const waitFor = 2 * time.Second

// scrape returns the text exposition of m.
func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

// gatedLocator answers with pos once release is closed, or fails when ctx ends.
func gatedLocator(release <-chan struct{}, pos geolocation.Position) geolocation.Locator {
	return geolocation.LocatorFunc(func(ctx context.Context, _ geolocation.Options) (geolocation.Position, error) {
		select {
		case <-release:
			return pos, nil
		case <-ctx.Done():
			return geolocation.Position{}, ctx.Err()
		}
	})
}

func waitLocated(t *testing.T, h *Host) {
	t.Helper()
	select {
	case <-h.Located():
	case <-time.After(waitFor):
		t.Fatal("geolocation outcome was never handled")
	}
}

func TestHost_MountConstructsWithFallback(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	h := NewHost(eng, nil, WithStyleURL("https://tiles.example/style.json"))
	require.NoError(t, h.Mount(context.Background()))
	t.Cleanup(h.Unmount)

	require.Len(t, eng.constructed, 1)
	assert.Equal(t, viewport.Initial(), eng.constructed[0])
	assert.Equal(t, "https://tiles.example/style.json", eng.styleURL)
	assert.NotEmpty(t, h.ID())

	waitLocated(t, h)
	assert.Equal(t, viewport.Initial(), h.Viewport(), "unsupported geolocation keeps the max extent")
}

func TestHost_GeolocationOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locator geolocation.Locator
		want    viewport.Viewport
	}{
		{
			name:    "success centers at zoom 12",
			locator: geolocation.StaticLocator{Longitude: -0.1276, Latitude: 51.5072},
			want:    viewport.CenterOn(-0.1276, 51.5072, 12),
		},
		{
			name: "failure falls back to the extent",
			locator: geolocation.LocatorFunc(func(context.Context, geolocation.Options) (geolocation.Position, error) {
				return geolocation.Position{}, geolocation.ErrNoFix
			}),
			want: viewport.FitBounds(geo.MaxExtent()),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := newFakeEngine()
			h := NewHost(eng, nil, WithResolver(geolocation.NewResolver(tt.locator)))
			require.NoError(t, h.Mount(context.Background()))
			t.Cleanup(h.Unmount)

			waitLocated(t, h)
			assert.Equal(t, tt.want, h.Viewport())

			pushed := eng.viewportCalls()
			require.Len(t, pushed, 1)
			assert.Equal(t, tt.want, pushed[0])
			assert.Equal(t, 24.0, h.Viewport().Padding)
		})
	}
}

func TestHost_LateGeolocationAfterUnmountIsDropped(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	release := make(chan struct{})
	loc := gatedLocator(release, geolocation.Position{Longitude: 1, Latitude: 52})
	h := NewHost(eng, nil, WithResolver(geolocation.NewResolver(loc)))
	require.NoError(t, h.Mount(context.Background()))

	h.Unmount()
	close(release)
	waitLocated(t, h)

	assert.Empty(t, eng.viewportCalls())
	assert.Equal(t, viewport.Initial(), h.Viewport())
}

func TestHost_UserMoveThenGeolocation(t *testing.T) {
	t.Parallel()

	moved := viewport.CenterOn(-3.19, 55.95, 9)

	tests := []struct {
		name string
		opts []HostOption
		want viewport.Viewport
	}{
		{name: "last writer wins", want: viewport.CenterOn(1, 52, 12)},
		{name: "user precedence", opts: []HostOption{WithUserPrecedence()}, want: moved},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := newFakeEngine()
			release := make(chan struct{})
			loc := gatedLocator(release, geolocation.Position{Longitude: 1, Latitude: 52})
			opts := append([]HostOption{WithResolver(geolocation.NewResolver(loc))}, tt.opts...)
			h := NewHost(eng, nil, opts...)
			require.NoError(t, h.Mount(context.Background()))
			t.Cleanup(h.Unmount)

			eng.fireMove(moved)
			assert.Equal(t, moved, h.Viewport())

			close(release)
			waitLocated(t, h)
			assert.Equal(t, tt.want, h.Viewport())
		})
	}
}

func TestHost_UnmountDetachesEverything(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	notes := &recordingNotifier{}
	sig := navigation.NewSignal()
	h := NewHost(eng, notes, WithSignal(sig))
	require.NoError(t, h.Mount(context.Background()))
	waitLocated(t, h)

	load, move := eng.subscriptions()
	assert.Equal(t, 1, load)
	assert.Equal(t, 1, move)
	assert.True(t, sig.Subscribed())

	h.Unmount()
	h.Unmount()

	load, move = eng.subscriptions()
	assert.Zero(t, load)
	assert.Zero(t, move)
	assert.False(t, sig.Emit(navigation.Request{Latitude: 48.85, Longitude: 2.35}))

	eng.fireLoad()
	assert.Empty(t, eng.maxBoundsCalls())
	assert.Empty(t, eng.flyCalls())
	assert.Empty(t, notes.all())
	assert.Equal(t, Unarmed, h.Boundary().State())
}

func TestHost_UnmountBeforeMount(t *testing.T) {
	t.Parallel()

	h := NewHost(newFakeEngine(), nil)
	assert.NotPanics(t, h.Unmount)
	assert.Equal(t, viewport.Initial(), h.Viewport())
}

func TestHost_LoadArmsBoundaryAndNavigationFlies(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	sig := navigation.NewSignal()
	h := NewHost(eng, nil, WithSignal(sig))
	require.NoError(t, h.Mount(context.Background()))
	t.Cleanup(h.Unmount)
	waitLocated(t, h)

	eng.fireLoad()
	eng.fireLoad()
	assert.Len(t, eng.maxBoundsCalls(), 1)
	assert.Equal(t, Armed, h.Boundary().State())

	before := h.Viewport()
	require.True(t, sig.Emit(navigation.Request{Latitude: 48.85, Longitude: 2.35}))
	require.Len(t, eng.flyCalls(), 1)
	assert.Equal(t, FlyToOptions{Center: geo.LngLat{2.35, 48.85}, Zoom: 14}, eng.flyCalls()[0])
	assert.Equal(t, before, h.Viewport(), "the viewport only follows renderer-reported moves")
}

func TestHost_NavigationFailureLeavesViewport(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	eng.flyErr = ErrNotLoaded
	notes := &recordingNotifier{}
	sig := navigation.NewSignal()
	h := NewHost(eng, notes, WithSignal(sig))
	require.NoError(t, h.Mount(context.Background()))
	t.Cleanup(h.Unmount)
	waitLocated(t, h)

	before := h.Viewport()
	sig.Emit(navigation.Request{Latitude: 48.85, Longitude: 2.35})

	assert.Len(t, notes.all(), 1)
	assert.Equal(t, before, h.Viewport())
}

func TestHost_MountErrors(t *testing.T) {
	t.Parallel()

	t.Run("already mounted", func(t *testing.T) {
		t.Parallel()
		h := NewHost(newFakeEngine(), nil)
		require.NoError(t, h.Mount(context.Background()))
		t.Cleanup(h.Unmount)
		assert.ErrorIs(t, h.Mount(context.Background()), ErrAlreadyMounted)
	})

	t.Run("construct fails", func(t *testing.T) {
		t.Parallel()
		eng := newFakeEngine()
		eng.constructErr = errEngine
		sig := navigation.NewSignal()
		h := NewHost(eng, nil, WithSignal(sig))

		err := h.Mount(context.Background())
		require.ErrorIs(t, err, errEngine)
		assert.False(t, sig.Subscribed())
	})

	t.Run("failed mount is not counted and can be retried", func(t *testing.T) {
		t.Parallel()
		eng := newFakeEngine()
		eng.constructErr = errEngine
		m := metrics.New()
		sig := navigation.NewSignal()
		h := NewHost(eng, nil, WithSignal(sig), WithMetrics(m))

		require.ErrorIs(t, h.Mount(context.Background()), errEngine)
		assert.Contains(t, scrape(t, m), "mapview_mounted_maps 0")

		eng.constructErr = nil
		require.NoError(t, h.Mount(context.Background()))
		assert.True(t, sig.Subscribed())
		assert.Contains(t, scrape(t, m), "mapview_mounted_maps 1")

		h.Unmount()
		assert.Contains(t, scrape(t, m), "mapview_mounted_maps 0")
	})

	t.Run("unmount after failed mount", func(t *testing.T) {
		t.Parallel()
		sig := navigation.NewSignal()
		first := NewHost(newFakeEngine(), nil, WithSignal(sig))
		require.NoError(t, first.Mount(context.Background()))
		t.Cleanup(first.Unmount)

		m := metrics.New()
		second := NewHost(newFakeEngine(), nil, WithSignal(sig), WithMetrics(m))
		require.ErrorIs(t, second.Mount(context.Background()), navigation.ErrHandlerRegistered)
		second.Unmount()
		assert.Contains(t, scrape(t, m), "mapview_mounted_maps 0")
	})

	t.Run("signal taken by another map", func(t *testing.T) {
		t.Parallel()
		sig := navigation.NewSignal()
		first := NewHost(newFakeEngine(), nil, WithSignal(sig))
		require.NoError(t, first.Mount(context.Background()))
		t.Cleanup(first.Unmount)

		second := NewHost(newFakeEngine(), nil, WithSignal(sig))
		assert.ErrorIs(t, second.Mount(context.Background()), navigation.ErrHandlerRegistered)
	})
}
