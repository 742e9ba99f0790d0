package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/mapview/internal/mapview"
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.width == 0 {
		return "Loading map...\n"
	}

	body := m.renderMap()
	if m.showPlaces {
		right := m.renderPlaces()
		if m.helpVisible {
			right = renderHelp()
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", right)
	} else if m.helpVisible {
		body = renderHelp()
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(renderFooter())
	return b.String()
}

func (m Model) renderMap() string {
	canvas := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(m.engine.Render())
	toasts := m.renderToasts()
	if toasts == "" {
		return canvas
	}
	// Toasts replace the top lines of the map.
	lines := strings.Split(canvas, "\n")
	for i, t := range strings.Split(toasts, "\n") {
		if i < len(lines) {
			lines[i] = t
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPlaces() string {
	style := lipgloss.NewStyle()
	if m.focus == focusPlaces {
		style = style.Foreground(lipgloss.Color("69"))
	}
	return style.Render(m.placesList.View())
}

func (m Model) renderToasts() string {
	ts := m.notes.list()
	if len(ts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(ts))
	for _, t := range ts {
		lines = append(lines, toastStyle(t.severity).Render(t.message))
	}
	return strings.Join(lines, "\n")
}

func toastStyle(s mapview.Severity) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if s == mapview.SeverityError {
		return style.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160"))
	}
	return style.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62"))
}

func (m Model) renderStatus() string {
	v := m.host.Viewport()
	located := "locating…"
	select {
	case <-m.host.Located():
		located = "located"
	default:
	}
	bounds := m.host.Boundary().State().String()
	if err := m.host.Boundary().Err(); err != nil {
		bounds = "unclamped"
	}

	left := fmt.Sprintf("%s  [%s]", v.String(), located)
	right := fmt.Sprintf("bounds: %s", bounds)
	if m.status != "" {
		right = m.status + " • " + right
	}
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(left + strings.Repeat(" ", pad) + right)
}

func renderFooter() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q: quit • tab: map/places • ←↑↓→/hjkl: pan • +/-: zoom • enter: fly to • ?: help")
}

func renderHelp() string {
	border := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Foreground(lipgloss.Color("69"))
	content := []string{
		"Help",
		"",
		"?: toggle this help",
		"q/ctrl+c: quit",
		"tab: switch focus between map and places",
		"arrows or hjkl: pan the map",
		"+/-: zoom",
		"r: reload the map style",
		"enter: fly to the selected place",
		"/: filter places",
	}
	return border.Render(strings.Join(content, "\n"))
}
