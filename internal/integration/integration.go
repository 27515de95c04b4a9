// Package integration parses an integration file into a package directive
// and an ordered list of (unit header, payload) pairs.
package integration

import (
	"fmt"
	"strings"

	"crforge/internal/cst"
	"crforge/internal/headers"
)

// Payload is a single top-level statement parsed out of a unit header's
// body text, ready to be spliced into a source tree by the applier.
type Payload struct {
	Text string
	Kind cst.Kind
	Name string
}

// Unit pairs a validated unit header with its optional payload. Payload is
// nil for remove ops and for import ops whose content lives entirely in
// the header's anchor.
type Unit struct {
	Header  *headers.Header
	Payload *Payload
}

// Directive is the fully parsed result of one integration file.
type Directive struct {
	Package  *headers.Header
	Units    []Unit
	Warnings []string
}

// BadIntegrationHeader reports a structural violation of the package
// header invariant (exactly one, first non-blank line).
type BadIntegrationHeader struct {
	Path   string
	Reason string
}

func (e *BadIntegrationHeader) Error() string {
	return fmt.Sprintf("integration: %s: %s", e.Path, e.Reason)
}

// Parse extracts the package directive and unit ops from integration file
// content. Header or payload problems at the unit level are tolerated:
// the offending unit is skipped and a warning recorded in Directive.Warnings.
// A malformed or duplicated package header is fatal (*BadIntegrationHeader).
func Parse(path string, content []byte) (*Directive, error) {
	lines := splitKeepEnds(string(content))

	pkgLineIdx, err := locatePackageHeader(path, lines)
	if err != nil {
		return nil, err
	}
	pkgHeader, err := headers.ParsePackage(strings.TrimRight(lines[pkgLineIdx], "\r\n"))
	if err != nil {
		return nil, &BadIntegrationHeader{Path: path, Reason: err.Error()}
	}

	d := &Directive{Package: pkgHeader}

	type headerSpan struct {
		line int
		raw  string
	}
	var spans []headerSpan
	for i := pkgLineIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], "\r\n")
		if headers.IsUnitHeaderLine(trimmed) {
			spans = append(spans, headerSpan{line: i, raw: trimmed})
		}
	}

	for i, span := range spans {
		bodyStart := span.line + 1
		bodyEnd := len(lines)
		if i+1 < len(spans) {
			bodyEnd = spans[i+1].line
		}
		rawPayload := strings.Join(lines[bodyStart:bodyEnd], "")

		h, err := headers.ParseUnit(span.raw)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("line %d: bad unit header: %v", span.line+1, err))
			continue
		}

		payload, err := buildPayload(h, rawPayload)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("line %d: %v", span.line+1, err))
			continue
		}
		d.Units = append(d.Units, Unit{Header: h, Payload: payload})
	}

	return d, nil
}

func locatePackageHeader(path string, lines []string) (int, error) {
	firstNonBlank := -1
	matchIdx := -1
	matchCount := 0
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if firstNonBlank < 0 && strings.TrimSpace(trimmed) != "" {
			firstNonBlank = i
		}
		if headers.IsPackageHeaderLine(trimmed) {
			matchCount++
			if matchIdx < 0 {
				matchIdx = i
			}
		}
	}
	if matchCount == 0 {
		return 0, &BadIntegrationHeader{Path: path, Reason: "no package header found"}
	}
	if matchCount > 1 {
		return 0, &BadIntegrationHeader{Path: path, Reason: fmt.Sprintf("expected exactly one package header, found %d", matchCount)}
	}
	if matchIdx != firstNonBlank {
		return 0, &BadIntegrationHeader{Path: path, Reason: "package header is not the first non-blank line"}
	}
	return matchIdx, nil
}

// buildPayload dedents, replaces non-breaking spaces, strips, and parses
// the raw unit body as exactly one top-level statement. Returns (nil, nil)
// for a remove op, and for an empty body when no payload is required (an
// import op); a non-empty import body is parsed like any other payload.
func buildPayload(h *headers.Header, raw string) (*Payload, error) {
	needsPayload := h.Op != headers.OpRemove && h.Type != headers.TypeImport

	cleaned := strings.ReplaceAll(raw, " ", " ")
	cleaned = dedent(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	if h.Op == headers.OpRemove {
		if cleaned != "" {
			return nil, fmt.Errorf("remove op must have no payload")
		}
		return nil, nil
	}
	if cleaned == "" {
		if needsPayload {
			return nil, fmt.Errorf("%s/%s requires a payload", h.Op, h.Type)
		}
		return nil, nil
	}

	tree, err := cst.Load("<payload>", []byte(cleaned+"\n"))
	if err != nil {
		return nil, fmt.Errorf("payload does not parse: %w", err)
	}
	var stmt *cst.Item
	for i := range tree.Module.Items {
		if tree.Module.Items[i].Kind != cst.KindFiller {
			if stmt != nil {
				return nil, fmt.Errorf("payload must be exactly one top-level statement")
			}
			stmt = &tree.Module.Items[i]
		}
	}
	if stmt == nil {
		if needsPayload {
			return nil, fmt.Errorf("%s/%s requires a payload", h.Op, h.Type)
		}
		return nil, nil
	}
	return &Payload{Text: cleaned + "\n", Kind: stmt.Kind, Name: stmt.Name}, nil
}

// dedent removes the minimum common leading whitespace across all
// non-blank lines of s.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return s
	}
	for i, line := range lines {
		if len(line) >= minIndent {
			lines[i] = line[minIndent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// splitKeepEnds splits s into lines, each retaining its trailing newline
// (the last line keeps whatever trailing content it has, newline or not).
func splitKeepEnds(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
