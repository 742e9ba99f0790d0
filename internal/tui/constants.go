package tui

import (
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/ensigniasec/mapview/internal/validate"
)

const (
	// framesPerSecond drives the fly-to spring.
	framesPerSecond = 30
	// springFrequency and springDamping shape the fly-to: critically damped, no overshoot.
	springFrequency = 5.0
	springDamping   = 1.0
	// settleEpsilon is how close (in degrees or zoom levels) a flight must get before it stops.
	settleEpsilon = 1e-4

	// baseCellsPerWorld is the number of columns spanning 360° at zoom 0.
	baseCellsPerWorld = 64
	// cellAspect is how much taller a terminal cell is than it is wide.
	cellAspect = 2.0
	// cellPixels converts viewport padding from pixels to columns.
	cellPixels = 8

	minZoom = 0
	maxZoom = validate.MaxZoom

	// panCells is how far one arrow key moves the map.
	panCells = 4
	zoomStep = 0.5

	listWidth     = 30
	statusLines   = 2
	toastDuration = 4 * time.Second
)

//nolint:gochecknoglobals // derived constant; harmonica.FPS is not a const expression.
var frameInterval = time.Second / framesPerSecond

func newSpring() harmonica.Spring {
	return harmonica.NewSpring(harmonica.FPS(framesPerSecond), springFrequency, springDamping)
}
