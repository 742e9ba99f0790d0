// Package viewport owns the map's visible region: a fitted extent or a center and zoom.
package viewport

import (
	"fmt"

	"github.com/ensigniasec/mapview/internal/geo"
)

const (
	// DefaultPadding is the inset, in pixels, applied around every viewport.
	DefaultPadding = 24
	// LocatedZoom is the zoom used when centering on the device position.
	LocatedZoom = 12
)

// Kind discriminates the active shape of a Viewport.
type Kind int

const (
	KindBounds Kind = iota
	KindCenter
)

func (k Kind) String() string {
	switch k {
	case KindBounds:
		return "bounds"
	case KindCenter:
		return "center"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Viewport is either a fitted extent (KindBounds) or a center point and zoom (KindCenter).
// Fields belonging to the inactive shape are zero.
type Viewport struct {
	Kind      Kind
	Bounds    geo.BoundingBox
	Longitude float64
	Latitude  float64
	Zoom      float64
	Padding   float64
}

// FitBounds returns a KindBounds viewport with the default padding.
func FitBounds(b geo.BoundingBox) Viewport {
	return Viewport{Kind: KindBounds, Bounds: b, Padding: DefaultPadding}
}

// CenterOn returns a KindCenter viewport with the default padding.
func CenterOn(lon, lat, zoom float64) Viewport {
	return Viewport{Kind: KindCenter, Longitude: lon, Latitude: lat, Zoom: zoom, Padding: DefaultPadding}
}

// Initial is the viewport in effect at mount: the max extent, fitted.
func Initial() Viewport { return FitBounds(geo.MaxExtent()) }

// Center returns the viewport center for either shape.
func (v Viewport) Center() geo.LngLat {
	if v.Kind == KindBounds {
		return v.Bounds.Center()
	}
	return geo.LngLat{v.Longitude, v.Latitude}
}

// EngineBounds returns the renderer form of a KindBounds viewport.
func (v Viewport) EngineBounds() (geo.EngineBounds, bool) {
	if v.Kind != KindBounds {
		return geo.EngineBounds{}, false
	}
	return geo.Convert(v.Bounds), true
}

func (v Viewport) String() string {
	if v.Kind == KindBounds {
		return fmt.Sprintf("bounds%s pad=%g", v.Bounds, v.Padding)
	}
	return fmt.Sprintf("center(lon=%.5f, lat=%.5f) z=%.2f pad=%g", v.Longitude, v.Latitude, v.Zoom, v.Padding)
}
