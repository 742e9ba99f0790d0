package mapview

import (
	"errors"
	"sync"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/viewport"
)

// fakeEngine records every call the host makes and lets tests fire load and move signals.
type fakeEngine struct {
	mu sync.Mutex

	constructErr   error
	maxBoundsErr   error
	maxBoundsPanic bool
	flyErr         error
	flyPanic       bool

	styleURL     string
	constructed  []viewport.Viewport
	maxBounds    []geo.EngineBounds
	flights      []FlyToOptions
	setViewports []viewport.Viewport

	loadSubs map[int]func()
	moveSubs map[int]func(viewport.Viewport)
	nextSub  int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		loadSubs: map[int]func(){},
		moveSubs: map[int]func(viewport.Viewport){},
	}
}

func (f *fakeEngine) Construct(styleURL string, initial viewport.Viewport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.constructErr != nil {
		return f.constructErr
	}
	f.styleURL = styleURL
	f.constructed = append(f.constructed, initial)
	return nil
}

func (f *fakeEngine) OnLoad(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.loadSubs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.loadSubs, id)
	}
}

func (f *fakeEngine) OnMove(fn func(viewport.Viewport)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.moveSubs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.moveSubs, id)
	}
}

func (f *fakeEngine) SetMaxBounds(b geo.EngineBounds) error {
	f.mu.Lock()
	f.maxBounds = append(f.maxBounds, b)
	panics, err := f.maxBoundsPanic, f.maxBoundsErr
	f.mu.Unlock()
	if panics {
		panic("style not ready")
	}
	return err
}

func (f *fakeEngine) FlyTo(opts FlyToOptions) error {
	f.mu.Lock()
	f.flights = append(f.flights, opts)
	panics, err := f.flyPanic, f.flyErr
	f.mu.Unlock()
	if panics {
		panic("camera destroyed")
	}
	return err
}

func (f *fakeEngine) SetViewport(v viewport.Viewport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setViewports = append(f.setViewports, v)
	return nil
}

// fireLoad invokes every load subscriber, as a renderer does after a style reload.
func (f *fakeEngine) fireLoad() {
	f.mu.Lock()
	subs := make([]func(), 0, len(f.loadSubs))
	for _, fn := range f.loadSubs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (f *fakeEngine) fireMove(v viewport.Viewport) {
	f.mu.Lock()
	subs := make([]func(viewport.Viewport), 0, len(f.moveSubs))
	for _, fn := range f.moveSubs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

func (f *fakeEngine) subscriptions() (load, move int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loadSubs), len(f.moveSubs)
}

func (f *fakeEngine) maxBoundsCalls() []geo.EngineBounds {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]geo.EngineBounds(nil), f.maxBounds...)
}

func (f *fakeEngine) flyCalls() []FlyToOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FlyToOptions(nil), f.flights...)
}

func (f *fakeEngine) viewportCalls() []viewport.Viewport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]viewport.Viewport(nil), f.setViewports...)
}

type notification struct {
	severity Severity
	message  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Notify(s Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{severity: s, message: msg})
}

func (r *recordingNotifier) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.sent...)
}

var errEngine = errors.New("engine failure")
