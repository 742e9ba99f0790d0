package viewport

import "github.com/ensigniasec/mapview/internal/geolocation"

// Event is an input to Reduce. The set is closed: GeolocationResolved and UserMoved.
type Event interface {
	isEvent()
}

// GeolocationResolved carries the one-shot geolocation outcome.
type GeolocationResolved struct {
	Outcome geolocation.Outcome
}

// UserMoved carries the renderer-reported viewport after a pan, zoom or animation step.
type UserMoved struct {
	Viewport Viewport
}

func (GeolocationResolved) isEvent() {}
func (UserMoved) isEvent()           {}

// Reduce returns the viewport that follows current after ev.
// Renderer-reported viewports are taken as-is; they are not validated.
func Reduce(current Viewport, ev Event) Viewport {
	switch e := ev.(type) {
	case GeolocationResolved:
		if e.Outcome.OK() {
			return CenterOn(e.Outcome.Longitude, e.Outcome.Latitude, LocatedZoom)
		}
		return Initial()
	case UserMoved:
		return e.Viewport
	default:
		return current
	}
}
