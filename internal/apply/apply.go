// Package apply executes a single resolved unit operation against a
// scope's item list: computing the edit window, stamping a marker,
// de-duplicating against existing content, and splicing.
package apply

import (
	"strings"

	"crforge/internal/anchor"
	"crforge/internal/cst"
	"crforge/internal/headers"
	"crforge/internal/integration"
)

// Apply resolves and applies a single unit op against block in place.
// Returns true if the op was applied (including as a silent idempotent
// no-op); false if the anchor could not be resolved (the caller should
// defer the op to a later pass).
func Apply(block *cst.Block, h *headers.Header, payload *integration.Payload) bool {
	idx := anchor.Resolve(block, h.Type, h.Anchor)
	if idx == anchor.NotFound {
		return false
	}

	text, kind, name := payloadText(h, payload)

	switch h.Op {
	case headers.OpInsertBefore:
		applyInsertBefore(block, idx, h, text, kind, name)
	case headers.OpInsertAfter:
		applyInsertAfter(block, idx, h, text, kind, name)
	case headers.OpReplace:
		applyReplace(block, idx, h, text, kind, name)
	case headers.OpRemove:
		applyRemove(block, idx, h)
	}
	return true
}

// payloadText resolves the literal text to insert/replace-with, along with
// its Kind/Name for the resulting Item. For import ops with no explicit
// payload, the header's anchor itself carries the content.
func payloadText(h *headers.Header, payload *integration.Payload) (text string, kind cst.Kind, name string) {
	if payload != nil {
		kind = payload.Kind
		// Payloads are parsed at module level, so a method payload arrives
		// as a function; inside a class body it is a method.
		if h.Type == headers.TypeMethod && kind == cst.KindFunction {
			kind = cst.KindMethod
		}
		return payload.Text, kind, payload.Name
	}
	if h.Type == headers.TypeImport {
		return h.Anchor + "\n", cst.KindImport, ""
	}
	return "", cst.KindFiller, ""
}

func applyInsertBefore(block *cst.Block, idx int, h *headers.Header, text string, kind cst.Kind, name string) {
	prev := prevStatementIndex(block, idx)
	if prev >= 0 && normalize(text) == normalize(block.Items[prev].Text) {
		return // idempotent no-op: nothing to strip, the insertion already landed
	}
	stripStaleAbove(block, idx)

	markerText := h.Emit() + "\n"
	if h.Type == headers.TypeMethod {
		markerText = "\n" + markerText
	}
	block.Insert(idx,
		cst.Item{Kind: cst.KindFiller, Text: markerText},
		cst.Item{Kind: kind, Name: name, Text: text},
	)
}

func applyInsertAfter(block *cst.Block, idx int, h *headers.Header, text string, kind cst.Kind, name string) {
	next := nextStatementIndex(block, idx)
	if next < len(block.Items) && normalize(text) == normalize(block.Items[next].Text) {
		return // idempotent no-op: nothing to strip, the insertion already landed
	}
	stripStaleAfter(block, idx)

	markerText := h.Emit() + "\n"
	if h.Type == headers.TypeClass {
		markerText = "\n\n" + markerText
	}
	if !strings.HasSuffix(block.Items[idx].Text, "\n") {
		// statement spans end before their newline; start the marker on its own line
		markerText = "\n" + markerText
	}
	block.Insert(idx+1,
		cst.Item{Kind: cst.KindFiller, Text: markerText},
		cst.Item{Kind: kind, Name: name, Text: text},
	)
}

func applyReplace(block *cst.Block, idx int, h *headers.Header, text string, kind cst.Kind, name string) {
	if normalize(text) == normalize(block.Items[idx].Text) {
		return // idempotent no-op
	}
	stripStaleAbove(block, idx)

	markerText := h.Emit() + "\n"
	block.ReplaceRange(idx, idx+1,
		cst.Item{Kind: cst.KindFiller, Text: markerText},
		cst.Item{Kind: kind, Name: name, Text: text},
	)
}

// nextStatementIndex returns the index of the item after idx, skipping at
// most one intervening filler item. The loader never emits two adjacent
// filler items, but edits can (remove leaves a blank and a marker filler
// side by side), and a second filler is not skipped.
func nextStatementIndex(block *cst.Block, idx int) int {
	next := idx + 1
	if next < len(block.Items) && block.Items[next].Kind == cst.KindFiller {
		next++
	}
	return next
}

// prevStatementIndex returns the index of the nearest non-filler item
// before idx, skipping at most one intervening filler span, symmetric with
// nextStatementIndex.
func prevStatementIndex(block *cst.Block, idx int) int {
	prev := idx - 1
	if prev >= 0 && block.Items[prev].Kind == cst.KindFiller {
		prev--
	}
	return prev
}

func applyRemove(block *cst.Block, idx int, h *headers.Header) {
	stripStaleAbove(block, idx)

	markerText := h.Emit() + "\n"
	block.ReplaceRange(idx, idx+1,
		cst.Item{Kind: cst.KindFiller, Text: "\n"},
		cst.Item{Kind: cst.KindFiller, Text: markerText},
	)
}

// stripStaleAbove removes a trailing contiguous run of stale-marker lines
// from the filler item immediately preceding idx, if any.
func stripStaleAbove(block *cst.Block, idx int) {
	if idx <= 0 {
		return
	}
	prev := idx - 1
	if block.Items[prev].Kind != cst.KindFiller {
		return
	}
	block.Items[prev].Text = stripTrailingStaleLines(block.Items[prev].Text)
}

// stripStaleAfter removes a leading contiguous run of stale-marker lines
// from the filler item immediately following idx, if any.
func stripStaleAfter(block *cst.Block, idx int) {
	next := idx + 1
	if next >= len(block.Items) || block.Items[next].Kind != cst.KindFiller {
		return
	}
	block.Items[next].Text = stripLeadingStaleLines(block.Items[next].Text)
}

func stripTrailingStaleLines(text string) string {
	lines := splitKeepEnds(text)
	end := len(lines)
	for end > 0 && headers.IsStaleMarker(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "")
}

func stripLeadingStaleLines(text string) string {
	lines := splitKeepEnds(text)
	start := 0
	for start < len(lines) && headers.IsStaleMarker(lines[start]) {
		start++
	}
	return strings.Join(lines[start:], "")
}

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

// normalize implements the "semantic equality" rule used for dedup:
// textual emissions, after stripping outer whitespace, are byte-equal.
func normalize(s string) string {
	return strings.TrimSpace(s)
}
