// Package phase drives the CR State Record through prompt -> json ->
// integration -> processing using one generic engine parameterized by the
// phase's content type.
package phase

import (
	"fmt"
	"os"
	"path/filepath"

	"crforge/internal/crstate"
)

// PhaseFailed reports that a phase's required input could not be
// recovered. It aborts the driver for this CR; preceding phases remain on
// disk.
type PhaseFailed struct {
	Phase crstate.Phase
	Err   error
}

func (e *PhaseFailed) Error() string {
	return fmt.Sprintf("phase: %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseFailed) Unwrap() error { return e.Err }

// Spec is one phase's content-type-specific behavior: how to turn raw
// in-memory text into a value T, and how to render T back to text for the
// phase's on-disk artifact.
type Spec[T any] struct {
	Name    crstate.Phase
	Path    string
	Produce func(raw string) (T, error)
	Render  func(T) string
}

// Run executes one phase: if the phase's artifact already exists on disk,
// it reads that file, passes its content to Produce in place of raw, and
// returns the result without rewriting the file (whatever else Produce
// does, such as an oracle call, still happens); otherwise it invokes
// Produce on raw, writes the rendered result, and returns it.
func Run[T any](spec Spec[T], raw string, fileExists bool) (T, error) {
	var zero T
	if fileExists {
		data, err := os.ReadFile(spec.Path)
		if err != nil {
			return zero, &PhaseFailed{Phase: spec.Name, Err: err}
		}
		val, err := spec.Produce(string(data))
		if err != nil {
			return zero, &PhaseFailed{Phase: spec.Name, Err: err}
		}
		return val, nil
	}

	val, err := spec.Produce(raw)
	if err != nil {
		return zero, &PhaseFailed{Phase: spec.Name, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(spec.Path), 0o755); err != nil {
		return zero, &PhaseFailed{Phase: spec.Name, Err: err}
	}
	if err := os.WriteFile(spec.Path, []byte(spec.Render(val)), 0o644); err != nil {
		return zero, &PhaseFailed{Phase: spec.Name, Err: err}
	}
	return val, nil
}

// StepFunc is a type-erased phase step, built from a typed Spec via
// Closure, so a Driver can hold all four phases (whose content types
// differ) in one ordered sequence.
type StepFunc func(raw string, fileExists bool) error

// Closure adapts a typed Spec into a StepFunc for use in a Driver.
func Closure[T any](spec Spec[T]) StepFunc {
	return func(raw string, fileExists bool) error {
		_, err := Run(spec, raw, fileExists)
		return err
	}
}

// Driver sequences all four phases for one CR State Record, skipping
// phases outside [EntryPhase, UpToPhase] while still refreshing their
// existence flags from disk, and saving the record after every transition.
type Driver struct {
	Record *crstate.Record
	Steps  map[crstate.Phase]StepFunc
	Inputs map[crstate.Phase]string
}

// Run drives the record through every declared phase in order.
func (d *Driver) Run() error {
	for _, p := range crstate.Order {
		if !inRange(p, d.Record.EntryPhase, d.Record.UpToPhase) {
			d.Record.RefreshExistence()
			continue
		}
		fn, ok := d.Steps[p]
		if !ok {
			continue
		}
		if err := d.Record.AdvancePhase(p); err != nil {
			return err
		}
		if err := fn(d.Inputs[p], existsFlag(d.Record, p)); err != nil {
			return err
		}
		d.Record.RefreshExistence()
		if err := d.Record.Save(); err != nil {
			return err
		}
	}
	return nil
}

func inRange(p, entry, upTo crstate.Phase) bool {
	order := crstate.Order
	idx := func(q crstate.Phase) int {
		for i, o := range order {
			if o == q {
				return i
			}
		}
		return -1
	}
	pi, ei, ui := idx(p), idx(entry), idx(upTo)
	if ei < 0 {
		ei = 0
	}
	if ui < 0 {
		ui = len(order) - 1
	}
	return pi >= ei && pi <= ui
}

func existsFlag(r *crstate.Record, p crstate.Phase) bool {
	switch p {
	case crstate.PhasePrompt:
		return r.PromptFileExists
	case crstate.PhaseJSON:
		return r.JSONFileExists
	case crstate.PhaseIntegration:
		return r.IntegrationFileExists
	case crstate.PhaseProcessing:
		return r.ProcessingFileExists
	default:
		return false
	}
}
