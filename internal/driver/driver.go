// Package driver runs the multi-pass fixpoint loop that dispatches
// module-scope and class-scope operations to the anchor resolver and
// applier until no further progress is possible.
package driver

import (
	"fmt"

	"crforge/internal/apply"
	"crforge/internal/cst"
	"crforge/internal/headers"
	"crforge/internal/integration"
)

// Result reports which operations were applied and which were abandoned
// as unresolved after the fixpoint settled.
type Result struct {
	Applied    int
	Unresolved []string // anchors, for warning output
}

// Run drives a Directive's unit ops against tree.Module to fixpoint.
// Module-scope ops (import/class/function) iterate over the module body;
// method ops are grouped by target class and iterated over that class's
// body once the class itself is resolved.
func Run(tree *cst.Tree, d *integration.Directive) *Result {
	result := &Result{}

	var moduleOps []integration.Unit
	methodOpsByClass := make(map[string][]integration.Unit)
	var classOrder []string

	for _, u := range d.Units {
		if u.Header.Type == headers.TypeMethod {
			class, _ := u.Header.ClassAndMethod()
			if _, seen := methodOpsByClass[class]; !seen {
				classOrder = append(classOrder, class)
			}
			methodOpsByClass[class] = append(methodOpsByClass[class], u)
			continue
		}
		moduleOps = append(moduleOps, u)
	}

	pending := moduleOps
	for {
		var deferred []integration.Unit
		progress := false
		for _, u := range pending {
			if apply.Apply(tree.Module, u.Header, u.Payload) {
				result.Applied++
				progress = true
			} else {
				deferred = append(deferred, u)
			}
		}
		pending = deferred
		if len(pending) == 0 || !progress {
			break
		}
	}
	for _, u := range pending {
		result.Unresolved = append(result.Unresolved, describeAnchor(u.Header))
	}

	// Class loop: for each class referenced by at least one method op,
	// resolve the class in the (now module-op-applied) module body, then
	// run a nested fixpoint over its method ops.
	for _, className := range classOrder {
		ops := methodOpsByClass[className]
		classItem := findClass(tree.Module, className)
		if classItem == nil {
			for _, u := range ops {
				result.Unresolved = append(result.Unresolved, describeAnchor(u.Header))
			}
			continue
		}

		pending := ops
		for {
			var deferred []integration.Unit
			progress := false
			for _, u := range pending {
				if apply.Apply(classItem.Body, u.Header, u.Payload) {
					result.Applied++
					progress = true
				} else {
					deferred = append(deferred, u)
				}
			}
			pending = deferred
			if len(pending) == 0 || !progress {
				break
			}
		}
		for _, u := range pending {
			result.Unresolved = append(result.Unresolved, describeAnchor(u.Header))
		}
	}

	return result
}

func findClass(block *cst.Block, name string) *cst.Item {
	for i := range block.Items {
		if block.Items[i].Kind == cst.KindClass && block.Items[i].Name == name {
			return &block.Items[i]
		}
	}
	return nil
}

func describeAnchor(h *headers.Header) string {
	return fmt.Sprintf("%s/%s:%s", h.Op, h.Type, h.Anchor)
}
