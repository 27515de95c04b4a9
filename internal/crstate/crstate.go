// Package crstate holds the single mutable CR State Record that a phase
// driver advances through the four CR phases, plus its filesystem
// bookkeeping.
package crstate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is one stage of the CR lifecycle.
type Phase string

const (
	PhasePrompt      Phase = "prompt"
	PhaseJSON        Phase = "json"
	PhaseIntegration Phase = "integration"
	PhaseProcessing  Phase = "processing"
)

// Order is the strict phase sequence; CurrentPhase never regresses
// relative to this order (invariant 4).
var Order = []Phase{PhasePrompt, PhaseJSON, PhaseIntegration, PhaseProcessing}

func (p Phase) index() int {
	for i, q := range Order {
		if p == q {
			return i
		}
	}
	return -1
}

// API distinguishes a brand-new work file from one that already exists.
type API string

const (
	APICreate API = "create"
	APIUpdate API = "update"
)

// SourceNotYetCreated is the sentinel SourcePath value for a CR whose
// work file does not exist yet (api == create, before processing writes it).
const SourceNotYetCreated = "not-yet-created"

// sentinel timestamps bypass calendar validation; reserved for tests
// (mirrors codeon.settings.test_cr_ids in original_source).
const (
	SentinelMax = "9999-99-99-99-99-99"
	SentinelMin = "8888-88-88-88-88-88"
)

const tsLayout = "2006-01-02-15-04-05"

// ParseTimeStamp validates a cr_id string, accepting the two reserved
// sentinels without calendar validation.
func ParseTimeStamp(s string) (time.Time, error) {
	if s == SentinelMax || s == SentinelMin {
		return time.Time{}, nil
	}
	return time.Parse(tsLayout, s)
}

// FormatTimeStamp renders the current time in the cr_id layout.
func FormatTimeStamp(t time.Time) string {
	return t.Format(tsLayout)
}

// Paths holds the six derived per-phase filesystem paths for one CR.
type Paths struct {
	Prompt      string
	JSON        string
	Integration string
	Processing  string
	Restore     string
	Log         string
}

// Record is the single mutable CR State Record.
type Record struct {
	CRID         string
	PgName       string
	WorkFileName string
	API          API

	EntryPhase   Phase
	CurrentPhase Phase
	UpToPhase    Phase
	Hot          bool

	PromptString      string `yaml:"prompt_string"`
	JSONString        string `yaml:"json_string"`
	IntegrationString string `yaml:"integration_string"`
	ProcessingString  string `yaml:"processing_string"`

	Paths Paths

	PromptFileExists      bool `yaml:"prompt_file_exists"`
	JSONFileExists        bool `yaml:"json_file_exists"`
	IntegrationFileExists bool `yaml:"integration_file_exists"`
	ProcessingFileExists  bool `yaml:"processing_file_exists"`

	SourcePath string
	ProjectDir string
	WorkDir    string
	TempDir    string

	cridLocked bool
}

// SetCRID assigns cr_id once. A second call with a different value is
// rejected (invariant 1: cr_id is immutable after first assignment).
func (r *Record) SetCRID(id string) error {
	if r.cridLocked && r.CRID != id {
		return fmt.Errorf("crstate: cr_id is immutable: already %q, got %q", r.CRID, id)
	}
	r.CRID = id
	r.cridLocked = true
	return nil
}

// DerivePaths computes the six per-phase paths for package pgName under
// resourcesDir.
func (r *Record) DerivePaths(resourcesDir string) {
	base := fmt.Sprintf("cr_%s_%s", r.CRID, baseName(r.WorkFileName))
	pkgDir := filepath.Join(resourcesDir, r.PgName)
	r.Paths = Paths{
		Prompt:      filepath.Join(pkgDir, "prompts", base+".md"),
		JSON:        filepath.Join(pkgDir, "jsons", base+".json"),
		Integration: filepath.Join(pkgDir, "integrations", base+".py"),
		Processing:  filepath.Join(pkgDir, "processing", base+".py"),
		Restore:     filepath.Join(pkgDir, r.PgName+"_archive", base+".py"),
		Log:         filepath.Join(pkgDir, "logs", base+".py"),
	}
}

func baseName(workFileName string) string {
	name := filepath.Base(workFileName)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// RefreshExistence re-probes the filesystem for every derived path and
// updates the corresponding *_file_exists flag (invariant 2).
func (r *Record) RefreshExistence() {
	r.PromptFileExists = exists(r.Paths.Prompt)
	r.JSONFileExists = exists(r.Paths.JSON)
	r.IntegrationFileExists = exists(r.Paths.Integration)
	r.ProcessingFileExists = exists(r.Paths.Processing)
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// DetermineEntryPhase sets EntryPhase to the first phase (in Order) whose
// existence flag is already true, or PhasePrompt if none are (invariant 3).
func (r *Record) DetermineEntryPhase() {
	flags := map[Phase]bool{
		PhasePrompt:      r.PromptFileExists,
		PhaseJSON:        r.JSONFileExists,
		PhaseIntegration: r.IntegrationFileExists,
		PhaseProcessing:  r.ProcessingFileExists,
	}
	for _, p := range Order {
		if flags[p] {
			r.EntryPhase = p
			return
		}
	}
	r.EntryPhase = PhasePrompt
}

// AdvancePhase moves CurrentPhase forward to next. Regressing (invariant 4)
// or skipping phases outside the declared order is rejected.
func (r *Record) AdvancePhase(next Phase) error {
	ni := next.index()
	if ni < 0 {
		return fmt.Errorf("crstate: unknown phase %q", next)
	}
	if r.CurrentPhase != "" {
		ci := r.CurrentPhase.index()
		if ni < ci {
			return fmt.Errorf("crstate: phase regression %q -> %q", r.CurrentPhase, next)
		}
	}
	r.CurrentPhase = next
	return nil
}

// Save writes the record's YAML representation to its Log path, mirroring
// CrData.log_cr_info in original_source/codeon/cr_info.py.
func (r *Record) Save() error {
	if r.Paths.Log == "" {
		return fmt.Errorf("crstate: log path not derived")
	}
	if err := os.MkdirAll(filepath.Dir(r.Paths.Log), 0o755); err != nil {
		return fmt.Errorf("crstate: mkdir: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("crstate: marshal: %w", err)
	}
	if err := os.WriteFile(r.Paths.Log, data, 0o644); err != nil {
		return fmt.Errorf("crstate: write log: %w", err)
	}
	return nil
}

// Load reads a previously saved record back from its log path.
func Load(logPath string) (*Record, error) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("crstate: read log: %w", err)
	}
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("crstate: unmarshal: %w", err)
	}
	r.cridLocked = r.CRID != ""
	return &r, nil
}

// ResolveSourcePath searches projectDir breadth-first (bounded by
// maxDepth) for a file named workFileName, skipping ignoreDirs, mirroring
// CrData.find_file_path in original_source/codeon/cr_info.py. Returns
// SourceNotYetCreated if nothing is found.
func ResolveSourcePath(projectDir, workFileName string, ignoreDirs []string, maxDepth int) (string, error) {
	ignored := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignored[d] = true
	}

	type queued struct {
		dir   string
		depth int
	}
	queue := []queued{{dir: projectDir, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > maxDepth {
			continue
		}
		entries, err := os.ReadDir(cur.dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			full := filepath.Join(cur.dir, e.Name())
			if e.IsDir() {
				if ignored[e.Name()] {
					continue
				}
				queue = append(queue, queued{dir: full, depth: cur.depth + 1})
				continue
			}
			if e.Name() == workFileName {
				return full, nil
			}
		}
	}
	return SourceNotYetCreated, nil
}

var embeddedCRIDRe = regexp.MustCompile(`cr_(\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2})_`)

// ExtractEmbeddedCRID looks for a cr_<timestamp>_ prefix embedded in a raw
// path argument. If explicit is non-empty and differs from the embedded
// value, this is a fatal mismatch (mirrors CrData.get_cr_id).
func ExtractEmbeddedCRID(rawPath, explicit string) (string, error) {
	m := embeddedCRIDRe.FindStringSubmatch(filepath.Base(rawPath))
	if m == nil {
		return explicit, nil
	}
	embedded := m[1]
	if explicit != "" && explicit != embedded {
		return "", fmt.Errorf("crstate: embedded cr_id %q conflicts with supplied cr_id %q", embedded, explicit)
	}
	return embedded, nil
}
