// Package geo holds the geographic value types shared by the map host and the renderer.
package geo

import "fmt"

// BoundingBox is a west/south/east/north extent in degrees.
// Callers guarantee West < East and South < North.
type BoundingBox struct {
	West  float64 `json:"west" yaml:"west" mapstructure:"west" validate:"gte=-180,lte=180,ltfield=East"`
	South float64 `json:"south" yaml:"south" mapstructure:"south" validate:"gte=-90,lte=90,ltfield=North"`
	East  float64 `json:"east" yaml:"east" mapstructure:"east" validate:"gte=-180,lte=180"`
	North float64 `json:"north" yaml:"north" mapstructure:"north" validate:"gte=-90,lte=90"`
}

// LngLat is a [longitude, latitude] pair in the order the renderer expects.
type LngLat [2]float64

// Lng returns the longitude component.
func (p LngLat) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p LngLat) Lat() float64 { return p[1] }

// EngineBounds is the renderer's "fit to extent" form: [south-west, north-east].
type EngineBounds [2]LngLat

// SouthWest returns the lower-left corner.
func (b EngineBounds) SouthWest() LngLat { return b[0] }

// NorthEast returns the upper-right corner.
func (b EngineBounds) NorthEast() LngLat { return b[1] }

// Box converts the pair back into a BoundingBox.
func (b EngineBounds) Box() BoundingBox {
	return BoundingBox{West: b[0][0], South: b[0][1], East: b[1][0], North: b[1][1]}
}

//nolint:gochecknoglobals // immutable process-wide extent; only exposed by value through MaxExtent.
var maxExtent = BoundingBox{West: -10.8, South: 49.8, East: 2.1, North: 60.9}

// MaxExtent returns the maximum allowed extent of the map, also used as the fallback viewport.
func MaxExtent() BoundingBox { return maxExtent }

// Convert maps a bounding box to the renderer's [[w,s],[e,n]] representation.
func Convert(b BoundingBox) EngineBounds {
	return EngineBounds{
		{b.West, b.South},
		{b.East, b.North},
	}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() LngLat {
	return LngLat{(b.West + b.East) / 2, (b.South + b.North) / 2}
}

// Width is the longitudinal span in degrees.
func (b BoundingBox) Width() float64 { return b.East - b.West }

// Height is the latitudinal span in degrees.
func (b BoundingBox) Height() float64 { return b.North - b.South }

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(p LngLat) bool {
	return p.Lng() >= b.West && p.Lng() <= b.East && p.Lat() >= b.South && p.Lat() <= b.North
}

// Clamp moves p to the nearest point inside the box.
func (b BoundingBox) Clamp(p LngLat) LngLat {
	return LngLat{clamp(p.Lng(), b.West, b.East), clamp(p.Lat(), b.South, b.North)}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.4f, %.4f, %.4f, %.4f]", b.West, b.South, b.East, b.North)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
