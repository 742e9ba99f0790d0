package tui

// Message types for Bubble Tea update loop.

// invokeMsg runs fn on the update loop; it is how the map host schedules work.
type invokeMsg struct{ fn func() }

// frameMsg advances an in-progress fly-to by one frame.
type frameMsg struct{}

// toastExpiredMsg drops the toast with the given id.
type toastExpiredMsg struct{ id int }

// navigateDoneMsg reports whether a navigation request found a mounted map.
type navigateDoneMsg struct {
	name      string
	delivered bool
}
