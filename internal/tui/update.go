package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/mapview/internal/mapview"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(x.Width, x.Height)
		follow := m.followUp()
		return m, follow

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(x)
		follow := m.followUp()
		return m, tea.Batch(cmd, follow)

	case invokeMsg:
		x.fn()
		follow := m.followUp()
		return m, follow

	case frameMsg:
		if m.engine.Step() {
			return m, frameTick()
		}
		m.animating = false
		return m, nil

	case toastExpiredMsg:
		m.notes.expire(x.id)
		return m, nil

	case navigateDoneMsg:
		if !x.delivered {
			m.notes.Notify(mapview.SeverityInfo, "No map is listening for navigation")
			follow := m.followUp()
			return m, follow
		}
		m.status = fmt.Sprintf("Flying to %s", x.name)
		follow := m.followUp()
		return m, follow
	}

	return m, nil
}

// resize splits the window between the map and, when it fits, the places list.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	mapHeight := height - statusLines
	mapWidth := width
	m.showPlaces = width >= listWidth*2
	if m.showPlaces {
		mapWidth = width - listWidth - 1
		m.placesList.SetSize(listWidth, mapHeight)
	} else if m.focus == focusPlaces {
		m.focus = focusMap
	}
	m.engine.Resize(mapWidth, mapHeight)
}

// handleKey processes key bindings and returns updated model and command.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	// While filtering, the list owns every key.
	if m.focus == focusPlaces && m.placesList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.placesList, cmd = m.placesList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusMap && m.showPlaces {
			m.focus = focusPlaces
		} else {
			m.focus = focusMap
		}
		return m, nil
	}

	if m.focus == focusPlaces {
		if key.Matches(msg, m.keys.Select) {
			if it, ok := m.placesList.SelectedItem().(placeItem); ok {
				return m, m.navigateTo(it.place)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.placesList, cmd = m.placesList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Left):
		m.engine.Pan(-panCells, 0)
	case key.Matches(msg, m.keys.Right):
		m.engine.Pan(panCells, 0)
	case key.Matches(msg, m.keys.Up):
		m.engine.Pan(0, -panCells/2)
	case key.Matches(msg, m.keys.Down):
		m.engine.Pan(0, panCells/2)
	case key.Matches(msg, m.keys.ZoomIn):
		m.engine.ZoomBy(zoomStep)
	case key.Matches(msg, m.keys.ZoomOut):
		m.engine.ZoomBy(-zoomStep)
	case key.Matches(msg, m.keys.Reload):
		m.engine.Reload()
	}
	return m, nil
}
