package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/mapview/internal/mapview"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/places"
)

// Options configures Run.
type Options struct {
	Places []places.Place
	// Signal receives navigation requests; Run creates one when nil.
	Signal *navigation.Signal
	// Host options are applied after the engine, notifier and scheduler are wired.
	Host []mapview.HostOption
	// LogOutput receives logs while the TUI owns the terminal; nil discards them.
	LogOutput io.Writer
}

// Run mounts a map in a terminal engine and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	engine := NewTerminalEngine()
	engine.SetMarkers(markersFor(opts.Places))
	notes := newToasts()
	sig := opts.Signal
	if sig == nil {
		sig = navigation.NewSignal()
	}

	var p *tea.Program
	// Background results re-enter the update loop as messages.
	schedule := func(fn func()) { p.Send(invokeMsg{fn: fn}) }

	hostOpts := append([]mapview.HostOption{
		mapview.WithSignal(sig),
		mapview.WithScheduler(schedule),
	}, opts.Host...)
	host := mapview.NewHost(engine, notes, hostOpts...)

	model := NewModel(engine, host, sig, notes, opts.Places)
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Silence external logs during TUI to avoid corrupting the view.
	out := opts.LogOutput
	if out == nil {
		out = io.Discard
	}
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(out)
	defer logrus.SetOutput(prevOut)

	if err := host.Mount(ctx); err != nil {
		return err
	}
	defer host.Unmount()

	_, err := p.Run()
	return err
}
