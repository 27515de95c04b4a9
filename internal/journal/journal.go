// Package journal assigns each CR run a short run-id, independent of the
// user-facing cr_id timestamp, used to correlate log lines across
// categories for a single invocation.
package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"crforge/internal/logging"
)

// Entry records one step of a CR run for the audit trail.
type Entry struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
}

// Run correlates every log line and report emitted during one CR
// invocation with a short run-id.
type Run struct {
	ID      string
	Entries []Entry
}

// New starts a run journal with a fresh run-id.
func New() *Run {
	id := uuid.New().String()[:8]
	logging.CLI("starting run %s", id)
	return &Run{ID: id}
}

// Log appends an entry to the run journal and mirrors it to the named
// logging category.
func (r *Run) Log(category logging.Category, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Entries = append(r.Entries, Entry{RunID: r.ID, Timestamp: time.Now(), Category: string(category), Message: msg})
	logging.Get(category).Info("[%s] %s", r.ID, msg)
}

// Tag formats a run-scoped label, e.g. for inclusion in a Report's metadata.
func (r *Run) Tag() string {
	return fmt.Sprintf("run=%s", r.ID)
}
