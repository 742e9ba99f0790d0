// Package geolocation resolves the device position once, with a timeout and a failure fallback.
package geolocation

import (
	"errors"
	"fmt"
)

// Kind discriminates an Outcome.
type Kind int

const (
	Unsupported Kind = iota
	Success
	Failure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel reasons carried by Failure outcomes.
var (
	ErrTimeout        = errors.New("geolocation: timed out")
	ErrStalePosition  = errors.New("geolocation: position older than maximum age")
	ErrNoFix          = errors.New("geolocation: no position available")
	ErrNotImplemented = errors.New("geolocation: provider not available")
)

// Outcome is the single result of a lookup: Success{Longitude, Latitude}, Failure{Reason} or Unsupported.
type Outcome struct {
	Kind      Kind
	Longitude float64
	Latitude  float64
	Reason    error
}

// Succeeded builds a Success outcome.
func Succeeded(lon, lat float64) Outcome {
	return Outcome{Kind: Success, Longitude: lon, Latitude: lat}
}

// Failed builds a Failure outcome.
func Failed(reason error) Outcome {
	if reason == nil {
		reason = ErrNoFix
	}
	return Outcome{Kind: Failure, Reason: reason}
}

// NotSupported builds an Unsupported outcome.
func NotSupported() Outcome { return Outcome{Kind: Unsupported} }

// OK reports whether the outcome carries a position.
func (o Outcome) OK() bool { return o.Kind == Success }

func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return fmt.Sprintf("success(lon=%.6f, lat=%.6f)", o.Longitude, o.Latitude)
	case Failure:
		return fmt.Sprintf("failure(%v)", o.Reason)
	default:
		return o.Kind.String()
	}
}
