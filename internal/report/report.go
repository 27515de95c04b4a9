// Package report assembles the structured status dict returned from a CR
// run and renders it for the CLI's three verbosity levels (-v/--verbose
// 0-2), built around a Success/Output/Error/Metadata shape generalized to
// a CR run's lifecycle.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"crforge/internal/crstate"
)

// Report is the final status of one CR run.
type Report struct {
	Success    bool              `json:"success"`
	CRID       string            `json:"cr_id"`
	PgName     string            `json:"pg_name"`
	Phase      crstate.Phase     `json:"phase"`
	Applied    int               `json:"applied"`
	Unresolved []string          `json:"unresolved,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Hot        bool              `json:"hot"`
	Formatted  bool              `json:"formatted"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Diff       string            `json:"diff,omitempty"`
}

// WithMetadata records a key/value pair, lazily allocating Metadata.
func (r *Report) WithMetadata(key, value string) *Report {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
	return r
}

// JSON renders the report as a JSON object.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}
	return string(data), nil
}

// Render produces the CLI's human-readable summary for the given
// verbosity: 0 is a single status line (plus an error line when Error is
// set, at every level), 1 adds warnings/unresolved anchors, 2
// additionally includes the unified diff (set by the caller via Diff).
func (r *Report) Render(verbosity int) string {
	var b strings.Builder

	status := "ok"
	if !r.Success {
		status = "failed"
	}
	fmt.Fprintf(&b, "%s: cr_id=%s pg=%s phase=%s applied=%d", status, r.CRID, r.PgName, r.Phase, r.Applied)
	if r.Hot {
		b.WriteString(" hot")
	}
	if r.Formatted {
		b.WriteString(" formatted")
	}
	b.WriteString("\n")

	if r.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", r.Error)
	}

	if verbosity >= 1 {
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "warning: %s\n", w)
		}
		for _, a := range r.Unresolved {
			fmt.Fprintf(&b, "unresolved anchor: %s\n", a)
		}
	}

	if verbosity >= 2 && r.Diff != "" {
		b.WriteString(r.Diff)
		if !strings.HasSuffix(r.Diff, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}
