package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/mapview"
	"github.com/ensigniasec/mapview/internal/validate"
	"github.com/ensigniasec/mapview/internal/viewport"
)

// errAlreadyConstructed is returned by a second Construct.
var errAlreadyConstructed = errors.New("map already constructed")

// Marker is a labelled point drawn on the map.
type Marker struct {
	Label    string
	Position geo.LngLat
}

type loadSub struct {
	id int
	fn func()
}

type moveSub struct {
	id int
	fn func(viewport.Viewport)
}

// flight is an in-progress fly-to; each axis (lng, lat, zoom) follows the same spring.
type flight struct {
	spring harmonica.Spring
	pos    [3]float64
	vel    [3]float64
	target [3]float64
}

// TerminalEngine renders the map as an equirectangular grid of terminal cells.
// It is not safe for concurrent use: the Bubble Tea loop drives every call.
type TerminalEngine struct {
	styleURL    string
	constructed bool
	loaded      bool
	width       int
	height      int

	center     geo.LngLat
	zoom       float64
	pendingFit *viewport.Viewport
	maxBounds  *geo.BoundingBox

	flight  *flight
	markers []Marker

	nextID   int
	loadSubs []loadSub
	moveSubs []moveSub
}

var _ mapview.Engine = (*TerminalEngine)(nil)

// NewTerminalEngine returns an unconstructed engine.
func NewTerminalEngine() *TerminalEngine { return &TerminalEngine{} }

// Construct implements mapview.Engine.
func (e *TerminalEngine) Construct(styleURL string, initial viewport.Viewport) error {
	if e.constructed {
		return errAlreadyConstructed
	}
	e.styleURL = styleURL
	e.constructed = true
	e.applyViewport(initial)
	return nil
}

// OnLoad implements mapview.Engine.
func (e *TerminalEngine) OnLoad(fn func()) func() {
	e.nextID++
	id := e.nextID
	e.loadSubs = append(e.loadSubs, loadSub{id: id, fn: fn})
	return func() {
		for i, s := range e.loadSubs {
			if s.id == id {
				e.loadSubs = append(e.loadSubs[:i], e.loadSubs[i+1:]...)
				return
			}
		}
	}
}

// OnMove implements mapview.Engine.
func (e *TerminalEngine) OnMove(fn func(viewport.Viewport)) func() {
	e.nextID++
	id := e.nextID
	e.moveSubs = append(e.moveSubs, moveSub{id: id, fn: fn})
	return func() {
		for i, s := range e.moveSubs {
			if s.id == id {
				e.moveSubs = append(e.moveSubs[:i], e.moveSubs[i+1:]...)
				return
			}
		}
	}
}

// SetMaxBounds implements mapview.Engine. The center is kept inside the bounds from now on.
func (e *TerminalEngine) SetMaxBounds(bounds geo.EngineBounds) error {
	box := bounds.Box()
	if err := validate.Struct(box); err != nil {
		return fmt.Errorf("invalid max bounds %s: %w", box, err)
	}
	e.maxBounds = &box
	before := e.center
	e.constrain()
	if e.center != before {
		e.emitMove()
	}
	return nil
}

// FlyTo implements mapview.Engine. A flight in progress is retargeted.
func (e *TerminalEngine) FlyTo(opts mapview.FlyToOptions) error {
	if !e.loaded {
		return mapview.ErrNotLoaded
	}
	if err := validate.Var(opts.Center.Lat(), "latitude"); err != nil {
		return fmt.Errorf("fly to: %w", err)
	}
	if err := validate.Var(opts.Center.Lng(), "longitude"); err != nil {
		return fmt.Errorf("fly to: %w", err)
	}
	if err := validate.Var(opts.Zoom, "zoom"); err != nil {
		return fmt.Errorf("fly to: %w", err)
	}

	target := opts.Center
	if e.maxBounds != nil {
		target = e.maxBounds.Clamp(target)
	}
	f := &flight{
		spring: newSpring(),
		pos:    [3]float64{e.center.Lng(), e.center.Lat(), e.zoom},
		target: [3]float64{target.Lng(), target.Lat(), opts.Zoom},
	}
	if e.flight != nil {
		f.vel = e.flight.vel
	}
	e.flight = f
	return nil
}

// SetViewport implements mapview.Engine.
func (e *TerminalEngine) SetViewport(v viewport.Viewport) error {
	if !e.constructed {
		return mapview.ErrNotLoaded
	}
	e.applyViewport(v)
	return nil
}

// Resize sets the drawable area. The first non-empty size completes loading.
func (e *TerminalEngine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.width, e.height = width, height
	if e.pendingFit != nil {
		v := *e.pendingFit
		e.pendingFit = nil
		e.applyViewport(v)
	}
	if e.constructed && !e.loaded {
		e.loaded = true
		e.fireLoad()
	}
}

// Reload re-fires the load signal, as a renderer does after a style swap.
func (e *TerminalEngine) Reload() {
	if e.loaded {
		e.fireLoad()
	}
}

// Loaded reports whether the load signal has fired.
func (e *TerminalEngine) Loaded() bool { return e.loaded }

// Animating reports whether a fly-to is in progress.
func (e *TerminalEngine) Animating() bool { return e.flight != nil }

// Step advances the flight by one frame and reports whether it is still running.
func (e *TerminalEngine) Step() bool {
	f := e.flight
	if f == nil {
		return false
	}
	settled := true
	for i := range f.pos {
		f.pos[i], f.vel[i] = f.spring.Update(f.pos[i], f.vel[i], f.target[i])
		if math.Abs(f.pos[i]-f.target[i]) > settleEpsilon || math.Abs(f.vel[i]) > settleEpsilon {
			settled = false
		}
	}
	if settled {
		f.pos = f.target
		e.flight = nil
	}
	e.center = geo.LngLat{f.pos[0], f.pos[1]}
	e.zoom = clampZoom(f.pos[2])
	e.constrain()
	e.emitMove()
	return e.flight != nil
}

// Pan moves the map by whole cells; positive rows move south.
func (e *TerminalEngine) Pan(cols, rows int) {
	if !e.loaded {
		return
	}
	e.flight = nil
	deg := degreesPerColumn(e.zoom)
	e.center = geo.LngLat{
		e.center.Lng() + float64(cols)*deg,
		e.center.Lat() - float64(rows)*deg*cellAspect,
	}
	e.constrain()
	e.emitMove()
}

// ZoomBy changes the zoom level around the center.
func (e *TerminalEngine) ZoomBy(delta float64) {
	if !e.loaded {
		return
	}
	e.flight = nil
	e.zoom = clampZoom(e.zoom + delta)
	e.emitMove()
}

// SetMarkers replaces the drawn markers.
func (e *TerminalEngine) SetMarkers(ms []Marker) {
	e.markers = append([]Marker(nil), ms...)
}

// Viewport returns what is on screen.
func (e *TerminalEngine) Viewport() viewport.Viewport {
	return viewport.CenterOn(e.center.Lng(), e.center.Lat(), e.zoom)
}

// Project returns the cell at p, reporting whether it is on screen.
func (e *TerminalEngine) Project(p geo.LngLat) (col, row int, ok bool) {
	deg := degreesPerColumn(e.zoom)
	col = e.width/2 + int(math.Round((p.Lng()-e.center.Lng())/deg))
	row = e.height/2 - int(math.Round((p.Lat()-e.center.Lat())/(deg*cellAspect)))
	ok = col >= 0 && col < e.width && row >= 0 && row < e.height
	return col, row, ok
}

// unproject returns the coordinate under a cell.
func (e *TerminalEngine) unproject(col, row int) geo.LngLat {
	deg := degreesPerColumn(e.zoom)
	return geo.LngLat{
		e.center.Lng() + float64(col-e.width/2)*deg,
		e.center.Lat() - float64(row-e.height/2)*deg*cellAspect,
	}
}

// Render draws the graticule, the area outside the max bounds, markers and the center.
func (e *TerminalEngine) Render() string {
	if e.width == 0 || e.height == 0 {
		return ""
	}
	grid := make([][]rune, e.height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", e.width))
	}

	deg := degreesPerColumn(e.zoom)
	step := graticuleStep(deg)
	for r := 0; r < e.height; r++ {
		for c := 0; c < e.width; c++ {
			p := e.unproject(c, r)
			if e.maxBounds != nil && !e.maxBounds.Contains(p) {
				grid[r][c] = '░'
				continue
			}
			vert := crosses(p.Lng(), p.Lng()+deg, step)
			horiz := crosses(p.Lat()-deg*cellAspect, p.Lat(), step)
			switch {
			case vert && horiz:
				grid[r][c] = '┼'
			case vert:
				grid[r][c] = '│'
			case horiz:
				grid[r][c] = '─'
			}
		}
	}

	for _, m := range e.markers {
		c, r, ok := e.Project(m.Position)
		if !ok {
			continue
		}
		grid[r][c] = '●'
		for i, ch := range []rune(m.Label) {
			if c+2+i >= e.width {
				break
			}
			grid[r][c+2+i] = ch
		}
	}

	grid[e.height/2][e.width/2] = '+'

	lines := make([]string, e.height)
	for r := range grid {
		lines[r] = string(grid[r])
	}
	return strings.Join(lines, "\n")
}

func (e *TerminalEngine) applyViewport(v viewport.Viewport) {
	e.flight = nil
	switch v.Kind {
	case viewport.KindCenter:
		e.pendingFit = nil
		e.center = geo.LngLat{v.Longitude, v.Latitude}
		e.zoom = clampZoom(v.Zoom)
	case viewport.KindBounds:
		e.center = v.Bounds.Center()
		if e.width == 0 || e.height == 0 {
			e.pendingFit = &v
			return
		}
		e.zoom = fitZoom(v.Bounds, v.Padding, e.width, e.height)
	}
	e.constrain()
}

func (e *TerminalEngine) constrain() {
	if e.maxBounds != nil {
		e.center = e.maxBounds.Clamp(e.center)
		return
	}
	e.center = geo.LngLat{
		math.Max(-180, math.Min(180, e.center.Lng())),
		math.Max(-90, math.Min(90, e.center.Lat())),
	}
}

func (e *TerminalEngine) fireLoad() {
	subs := append([]loadSub(nil), e.loadSubs...)
	for _, s := range subs {
		s.fn()
	}
}

func (e *TerminalEngine) emitMove() {
	v := e.Viewport()
	subs := append([]moveSub(nil), e.moveSubs...)
	for _, s := range subs {
		s.fn(v)
	}
}

func degreesPerColumn(zoom float64) float64 {
	return 360 / (baseCellsPerWorld * math.Exp2(zoom))
}

// fitZoom is the deepest zoom at which b, inset by padding pixels, fits in width x height cells.
func fitZoom(b geo.BoundingBox, padding float64, width, height int) float64 {
	padCols := padding / cellPixels
	padRows := padCols / cellAspect
	usableW := math.Max(1, float64(width)-2*padCols)
	usableH := math.Max(1, float64(height)-2*padRows)
	need := math.Max(b.Width()/usableW, b.Height()/(usableH*cellAspect))
	if need <= 0 {
		return maxZoom
	}
	return clampZoom(math.Log2(360 / (baseCellsPerWorld * need)))
}

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}

//nolint:gochecknoglobals // fixed ladder of graticule spacings.
var graticuleSteps = []float64{30, 10, 5, 2, 1, 0.5, 0.2, 0.1, 0.05, 0.02, 0.01, 0.005, 0.002, 0.001}

// graticuleStep picks the finest spacing that keeps lines at least eight columns apart.
func graticuleStep(degPerCol float64) float64 {
	best := graticuleSteps[0]
	for _, s := range graticuleSteps {
		if s/degPerCol < 8 {
			break
		}
		best = s
	}
	return best
}

// gridEpsilon absorbs float error when a cell edge sits on a grid line, in units of step.
const gridEpsilon = 1e-9

// crosses reports whether a multiple of step lies in [lo, hi).
func crosses(lo, hi, step float64) bool {
	k := math.Ceil(lo/step - gridEpsilon)
	return k*step < hi
}
