package tui

import (
	"sync"
	"time"

	"github.com/ensigniasec/mapview/internal/mapview"
)

type toast struct {
	id       int
	severity mapview.Severity
	message  string
	expires  time.Time
}

// toasts is the notification surface handed to the map host. Notify runs on the update
// loop, so it only queues; the model schedules expiry.
type toasts struct {
	mu      sync.Mutex
	nextID  int
	active  []toast
	pending []int
	now     func() time.Time
}

var _ mapview.Notifier = (*toasts)(nil)

func newToasts() *toasts { return &toasts{now: time.Now} }

// Notify implements mapview.Notifier.
func (t *toasts) Notify(severity mapview.Severity, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.active = append(t.active, toast{id: t.nextID, severity: severity, message: message, expires: t.now().Add(toastDuration)})
	t.pending = append(t.pending, t.nextID)
}

// takePending returns ids of toasts that still need an expiry timer.
func (t *toasts) takePending() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.pending
	t.pending = nil
	return ids
}

func (t *toasts) expire(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, ts := range t.active {
		if ts.id == id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

func (t *toasts) list() []toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]toast(nil), t.active...)
}
