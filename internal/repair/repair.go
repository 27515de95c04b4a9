// Package repair recovers a valid {target, code} record, or a valid
// package-header-led markdown body, from text that may be surrounded by
// prose or markdown fences or contain minor JSON syntax errors, via a
// staged extraction strategy applied as an ordered chain.
package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"crforge/internal/headers"
)

// Record is the recovered {target, code} shape used by the json phase.
type Record struct {
	Target string
	Code   string
}

// RepairFailed reports that every strategy in the recovery chain was
// exhausted without producing a usable record.
type RepairFailed struct {
	Reason string
}

func (e *RepairFailed) Error() string { return fmt.Sprintf("repair: %s", e.Reason) }

// jsonStrategies is the fixed ordered recovery chain. Each stage
// receives the output of the previous stage's input (not its output) plus
// its own transformation, and returns a candidate blob to attempt decoding.
var jsonStrategies = []func(string) string{
	func(s string) string { return s },
	carveOutermostBraces,
	stripTrailingCommas,
	insertMissingCommasAndQuotes,
}

// RepairJSON runs the staged recovery chain against blob and returns the
// first candidate that decodes into an object containing a "target" key.
func RepairJSON(blob string) (*Record, error) {
	for _, strategy := range jsonStrategies {
		candidate := strategy(blob)
		rec, ok := tryDecode(candidate)
		if ok {
			return rec, nil
		}
	}
	return nil, &RepairFailed{Reason: "json recovery chain exhausted"}
}

func tryDecode(candidate string) (*Record, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	targetRaw, ok := obj["target"]
	if !ok {
		return nil, false
	}
	target, ok := targetRaw.(string)
	if !ok || target == "" {
		return nil, false
	}
	code, _ := obj["code"].(string)
	return &Record{Target: target, Code: code}, true
}

var bracesRe = regexp.MustCompile(`(?s)\{.*\}`)

// carveOutermostBraces extracts the outermost { ... } span by greedy match.
func carveOutermostBraces(s string) string {
	m := bracesRe.FindString(s)
	if m == "" {
		return s
	}
	return m
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

func stripTrailingCommas(s string) string {
	carved := carveOutermostBraces(s)
	return trailingCommaRe.ReplaceAllString(carved, "$1")
}

var missingCommaRe = regexp.MustCompile(`([}\]])\s*\n\s*([\[{])`)

// insertMissingCommasAndQuotes inserts commas between adjacent closing and
// opening brackets separated only by a newline, then normalizes single
// quotes to double quotes. This is the last, most aggressive stage.
func insertMissingCommasAndQuotes(s string) string {
	carved := stripTrailingCommas(s)
	fixed := missingCommaRe.ReplaceAllString(carved, "$1,\n$2")
	fixed = strings.ReplaceAll(fixed, "'", `"`)
	return fixed
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n?(.*?)```")

// RepairMarkdown strips triple-backtick fences (with an optional language
// tag) and any prose preceding the first package header, then requires the
// remainder to begin with a valid package header.
func RepairMarkdown(blob string) (string, error) {
	body := blob
	if m := fenceRe.FindStringSubmatch(blob); m != nil {
		body = m[1]
	}

	lines := strings.Split(body, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if headers.IsPackageHeaderLine(trimmed) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", &RepairFailed{Reason: "no package header found after stripping fences/prose"}
	}
	result := strings.Join(lines[start:], "\n")
	headerLine := strings.TrimRight(lines[start], "\r")
	if _, err := headers.ParsePackage(headerLine); err != nil {
		return "", &RepairFailed{Reason: fmt.Sprintf("leading header invalid: %v", err)}
	}
	return result, nil
}
