// Package anchor resolves a unit header's textual anchor to a concrete
// statement index within a scope's ordered item list.
package anchor

import (
	"strings"

	"crforge/internal/cst"
	"crforge/internal/headers"
)

// NotFound is the sentinel index returned when resolution fails.
const NotFound = -1

// Resolve locates anchor within scope according to kind's matching rule,
// falling back to normalized full-text equality when the primary rule
// misses (this fallback does not apply to import anchors).
func Resolve(scope *cst.Block, kind headers.Type, anchor string) int {
	anchor = strings.TrimSpace(anchor)

	switch kind {
	case headers.TypeImport:
		target := trimOuter(anchor)
		for i, it := range scope.Items {
			if strings.HasPrefix(trimOuter(it.Text), target) {
				return i
			}
		}
		return NotFound

	case headers.TypeClass:
		if idx := matchByNameAndKind(scope, cst.KindClass, anchor); idx != NotFound {
			return idx
		}

	case headers.TypeFunction:
		if idx := matchByNameAndKind(scope, cst.KindFunction, anchor); idx != NotFound {
			return idx
		}

	case headers.TypeMethod:
		// "Class.method": the class half is resolved by the caller, which
		// passes that class's body as scope; match on the method half.
		method := anchor
		if dot := strings.Index(anchor, "."); dot >= 0 {
			method = anchor[dot+1:]
		}
		if idx := matchByNameAndKind(scope, cst.KindMethod, method); idx != NotFound {
			return idx
		}
	}

	return matchByNormalizedEquality(scope, anchor)
}

func matchByNameAndKind(scope *cst.Block, kind cst.Kind, name string) int {
	for i, it := range scope.Items {
		if it.Kind == kind && it.Name == name {
			return i
		}
	}
	return NotFound
}

func matchByNormalizedEquality(scope *cst.Block, anchor string) int {
	target := foldNormalize(anchor)
	for i, it := range scope.Items {
		if foldNormalize(it.Text) == target {
			return i
		}
	}
	return NotFound
}

// trimOuter strips only leading/trailing whitespace, used for the import
// prefix match (case preserved, since Python keywords and identifiers are
// case-sensitive).
func trimOuter(s string) string {
	return strings.TrimSpace(s)
}

// foldNormalize strips whitespace and lowercases, the normalization used
// for the last-resort fallback match.
func foldNormalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
