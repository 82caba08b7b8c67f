package runtime

import (
	"fmt"
	"sync"

	"github.com/roach88/deliver/internal/ir"
)

// Recorder collects notifications raised during one engine operation.
// The zero value is ready to use and safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	notes []ir.Notification
}

// Add records a notification.
func (r *Recorder) Add(level ir.NotificationLevel, source, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, ir.Notification{
		Level:   level,
		Source:  source,
		Message: fmt.Sprintf(format, args...),
	})
}

// Notes returns a copy of the recorded notifications in order.
// Never nil.
func (r *Recorder) Notes() []ir.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

// AtLeast returns the recorded notifications whose level is at least min.
func (r *Recorder) AtLeast(min ir.NotificationLevel) []ir.Notification {
	var out []ir.Notification
	for _, n := range r.Notes() {
		if n.Level.Rank() >= min.Rank() {
			out = append(out, n)
		}
	}
	return out
}
