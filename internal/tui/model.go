package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/mapview/internal/mapview"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/places"
)

// focus selects which pane receives keys.
type focus int

const (
	focusMap focus = iota
	focusPlaces
)

// Model is the root Bubble Tea model.
type Model struct {
	engine *TerminalEngine
	host   *mapview.Host
	signal *navigation.Signal
	notes  *toasts

	width    int
	height   int
	quitting bool

	// animating is true while frame ticks are scheduled.
	animating bool
	// status is the last navigation line shown under the map.
	status string

	// ui state
	helpVisible bool
	focus       focus
	showPlaces  bool

	placesList list.Model

	// keymap for consistent keybindings
	keys keyMap
}

// NewModel constructs a Model around a host that owns engine.
func NewModel(engine *TerminalEngine, host *mapview.Host, sig *navigation.Signal, notes *toasts, ps []places.Place) Model {
	return Model{
		engine:     engine,
		host:       host,
		signal:     sig,
		notes:      notes,
		placesList: newPlacesList(ps),
		keys:       newKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// navigateTo emits a navigation request off the update loop; the host schedules
// the fly-to back onto it.
func (m Model) navigateTo(p places.Place) tea.Cmd {
	sig := m.signal
	return func() tea.Msg {
		return navigateDoneMsg{name: p.Name, delivered: sig.Emit(p.Request())}
	}
}

// frameTick schedules the next animation frame.
func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(_ time.Time) tea.Msg { return frameMsg{} })
}

// followUp starts frame ticks for a new flight and expiry timers for new toasts.
func (m *Model) followUp() tea.Cmd {
	var cmds []tea.Cmd
	if m.engine.Animating() && !m.animating {
		m.animating = true
		cmds = append(cmds, frameTick())
	}
	for _, id := range m.notes.takePending() {
		id := id
		cmds = append(cmds, tea.Tick(toastDuration, func(_ time.Time) tea.Msg { return toastExpiredMsg{id: id} }))
	}
	return tea.Batch(cmds...)
}
