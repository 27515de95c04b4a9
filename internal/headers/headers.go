// Package headers parses and emits the two cr-header line formats: the
// package header (#--- ... ---#) and the unit header (#-- ... --#).
package headers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes a package header from a unit header by delimiter width.
type Kind int

const (
	KindPackage Kind = iota
	KindUnit
)

// Op values. The same string type covers both the package op set and the
// unit op set; validity of a given op for a given Kind is enforced by
// Validate, not by the type system (Go has no tagged unions).
type Op string

const (
	OpInsertBefore Op = "insert_before"
	OpInsertAfter  Op = "insert_after"
	OpReplace      Op = "replace"
	OpRemove       Op = "remove"
	OpUpdate       Op = "update"
	OpCreate       Op = "create"
)

var unitOps = map[Op]bool{OpInsertBefore: true, OpInsertAfter: true, OpReplace: true, OpRemove: true}
var packageOps = map[Op]bool{OpUpdate: true, OpCreate: true, OpRemove: true}

// Type is the cr_type field: the kind of object a header targets.
type Type string

const (
	TypeFile     Type = "file"
	TypeImport   Type = "import"
	TypeClass    Type = "class"
	TypeFunction Type = "function"
	TypeMethod   Type = "method"
)

var validTypes = map[Type]bool{
	TypeFile: true, TypeImport: true, TypeClass: true, TypeFunction: true, TypeMethod: true,
}

// fieldOrder is the emitter's fixed re-emission order.
var fieldOrder = []string{"cr_op", "cr_type", "cr_anc", "install", "cr_id"}

// Header is the parsed, validated representation of a single cr-header line.
type Header struct {
	Kind      Kind
	Op        Op
	Type      Type
	Anchor    string
	Install   *bool
	CRID      string
	hasInstall bool
}

var importAnchorRe = regexp.MustCompile(`^(import \w+|from \w+(\.\w+)* import \w+)$`)

const (
	pkgStart = "#--- "
	pkgEnd   = " ---#"
	unitStart = "#-- "
	unitEnd   = " --#"
)

// ParsePackage parses a package header line (#--- ... ---#).
func ParsePackage(line string) (*Header, error) {
	body, ok := strip(line, pkgStart, pkgEnd)
	if !ok {
		return nil, fmt.Errorf("headers: not a package header: %q", line)
	}
	h := &Header{Kind: KindPackage}
	fields, err := parseFields(body)
	if err != nil {
		return nil, err
	}
	if err := h.assign(fields); err != nil {
		return nil, err
	}
	if h.Type != TypeFile {
		return nil, fmt.Errorf("headers: package header cr_type must be 'file', got %q", h.Type)
	}
	if !packageOps[h.Op] {
		return nil, fmt.Errorf("headers: invalid package cr_op %q", h.Op)
	}
	if h.Anchor == "" {
		return nil, fmt.Errorf("headers: package header requires non-empty cr_anc")
	}
	return h, nil
}

// ParseUnit parses a unit header line (#-- ... --#).
func ParseUnit(line string) (*Header, error) {
	body, ok := strip(line, unitStart, unitEnd)
	if !ok {
		return nil, fmt.Errorf("headers: not a unit header: %q", line)
	}
	h := &Header{Kind: KindUnit}
	fields, err := parseFields(body)
	if err != nil {
		return nil, err
	}
	if err := h.assign(fields); err != nil {
		return nil, err
	}
	if !unitOps[h.Op] {
		return nil, fmt.Errorf("headers: invalid unit cr_op %q", h.Op)
	}
	if h.Type == TypeFile {
		return nil, fmt.Errorf("headers: cr_type 'file' is only valid on package headers")
	}
	if err := h.validateAnchor(); err != nil {
		return nil, err
	}
	return h, nil
}

func strip(line, start, end string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, start) || !strings.HasSuffix(line, end) {
		return "", false
	}
	return line[len(start) : len(line)-len(end)], true
}

// parseFields splits the comma-separated "key: value" body into a map,
// preserving insertion order is not required here since the caller
// re-validates against the closed field set.
func parseFields(body string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx < 0 {
			return nil, fmt.Errorf("headers: malformed field %q", part)
		}
		key := strings.TrimSpace(part[:idx])
		val := strings.TrimSpace(part[idx+1:])
		fields[key] = val
	}
	return fields, nil
}

var recognizedKeys = map[string]bool{
	"cr_op": true, "cr_type": true, "cr_anc": true, "install": true, "cr_id": true,
}

func (h *Header) assign(fields map[string]string) error {
	for k, v := range fields {
		if !recognizedKeys[k] {
			return fmt.Errorf("headers: unrecognized key %q", k)
		}
		switch k {
		case "cr_op":
			h.Op = Op(v)
		case "cr_type":
			t := Type(v)
			if !validTypes[t] {
				return fmt.Errorf("headers: invalid cr_type %q", v)
			}
			h.Type = t
		case "cr_anc":
			h.Anchor = v
		case "cr_id":
			h.CRID = v
		case "install":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("headers: install must be boolean, got %q", v)
			}
			h.Install = &b
			h.hasInstall = true
		}
	}
	return nil
}

func (h *Header) validateAnchor() error {
	switch h.Type {
	case TypeImport:
		if h.Anchor != "" && !importAnchorRe.MatchString(h.Anchor) {
			return fmt.Errorf("headers: invalid import anchor %q", h.Anchor)
		}
	case TypeMethod:
		parts := strings.Split(h.Anchor, ".")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("headers: method anchor must be 'Class.method', got %q", h.Anchor)
		}
	}
	return nil
}

// ClassAndMethod splits a method anchor "Class.method" into its two halves.
// Only valid when h.Type == TypeMethod.
func (h *Header) ClassAndMethod() (class, method string) {
	parts := strings.SplitN(h.Anchor, ".", 2)
	if len(parts) != 2 {
		return "", h.Anchor
	}
	return parts[0], parts[1]
}

// Emit re-serializes the header using the fixed field order, omitting any
// absent fields. Round-trip stable modulo field ordering.
func (h *Header) Emit() string {
	start, end := unitStart, unitEnd
	if h.Kind == KindPackage {
		start, end = pkgStart, pkgEnd
	}
	var parts []string
	for _, f := range fieldOrder {
		switch f {
		case "cr_op":
			if h.Op != "" {
				parts = append(parts, fmt.Sprintf("cr_op: %s", h.Op))
			}
		case "cr_type":
			if h.Type != "" {
				parts = append(parts, fmt.Sprintf("cr_type: %s", h.Type))
			}
		case "cr_anc":
			if h.Anchor != "" {
				parts = append(parts, fmt.Sprintf("cr_anc: %s", h.Anchor))
			}
		case "install":
			if h.hasInstall && h.Install != nil {
				parts = append(parts, fmt.Sprintf("install: %v", *h.Install))
			}
		case "cr_id":
			if h.CRID != "" {
				parts = append(parts, fmt.Sprintf("cr_id: %s", h.CRID))
			}
		}
	}
	return start + strings.Join(parts, ", ") + end
}

// IsPackageHeaderLine reports whether a line looks like a package header,
// without fully validating it. Used by scanners that need a cheap filter.
func IsPackageHeaderLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	return strings.HasPrefix(line, pkgStart) && strings.HasSuffix(line, pkgEnd)
}

// IsUnitHeaderLine reports whether a line looks like a unit header, without
// fully validating it.
func IsUnitHeaderLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	return strings.HasPrefix(line, unitStart) && strings.HasSuffix(line, unitEnd)
}

// IsStaleMarker reports whether a line is a bare marker comment left over
// from a previous run: an otherwise-empty line whose trimmed content begins
// with "#--" or "#---". This is intentionally textual, not structural: it
// must survive a previous run's markers while never stripping a user
// comment that merely begins with two dashes.
func IsStaleMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#--")
}
