package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/mapview/internal/geo"
	"github.com/ensigniasec/mapview/internal/places"
)

// placeItem is the list item backing a saved place.
type placeItem struct {
	place places.Place
}

// List item interface methods.
func (it placeItem) Title() string       { return it.place.Name }
func (it placeItem) Description() string { return it.place.Note }
func (it placeItem) FilterValue() string { return it.place.Name + " " + it.place.Note }

// placesDelegate renders placeItem rows with the coordinates right-justified.
type placesDelegate struct{}

func (d placesDelegate) Height() int                             { return 1 }
func (d placesDelegate) Spacing() int                            { return 0 }
func (d placesDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d placesDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(placeItem)
	if !ok {
		return
	}
	selected := index == m.Index()
	leftPrefix := "  "
	lineStyle := lipgloss.NewStyle()
	if selected {
		leftPrefix = "> "
		lineStyle = lineStyle.Foreground(lipgloss.Color("69")).Bold(true)
	}

	left := leftPrefix + it.place.Name
	right := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
		Render(fmt.Sprintf("%.2f,%.2f", it.place.Latitude, it.place.Longitude))

	padding := m.Width() - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	line := left + spaces(padding) + right
	_, _ = fmt.Fprint(w, lineStyle.Render(line))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(n).Render("")
}

func newPlacesList(ps []places.Place) list.Model {
	items := make([]list.Item, 0, len(ps))
	for _, p := range ps {
		items = append(items, placeItem{place: p})
	}
	lst := list.New(items, placesDelegate{}, listWidth, 0)
	lst.Title = "Places"
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(true)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	return lst
}

func markersFor(ps []places.Place) []Marker {
	out := make([]Marker, 0, len(ps))
	for _, p := range ps {
		out = append(out, Marker{Label: p.Name, Position: geo.LngLat{p.Longitude, p.Latitude}})
	}
	return out
}
