package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crforge/internal/config"
	"crforge/internal/crstate"
	"crforge/internal/cst"
	"crforge/internal/diff"
	"crforge/internal/driver"
	"crforge/internal/integration"
	"crforge/internal/journal"
	"crforge/internal/logging"
	"crforge/internal/oracle"
	"crforge/internal/phase"
	"crforge/internal/repair"
	"crforge/internal/report"
	"crforge/internal/writer"
)

// runArgs bundles everything a pipeline run needs, gathered from the
// persistent flags shared by the prompt/create/update/server subcommands.
type runArgs struct {
	api         crstate.API
	crID        string
	sourcePath  string
	integration string // pre-authored integration file to stage directly, if any
	description string // raw task text for the oracle, if no integration file was supplied
	upTo        crstate.Phase
	hot         bool
	black       bool
}

// buildRecord assigns cr_id, derives pg_name/paths, and determines where
// this invocation enters the four-phase sequence.
func buildRecord(s *config.Settings, a runArgs) (*crstate.Record, error) {
	rec := &crstate.Record{API: a.api, ProjectDir: s.ProjectDir}

	crID := a.crID
	if crID == "" {
		crID = crstate.FormatTimeStamp(time.Now())
	}
	if err := rec.SetCRID(crID); err != nil {
		return nil, err
	}

	sourcePath := a.sourcePath
	if sourcePath == "" {
		sourcePath = crstate.SourceNotYetCreated
	}
	rec.SourcePath = sourcePath
	rec.WorkFileName = filepath.Base(sourcePath)
	if rec.WorkFileName == "." || rec.WorkFileName == string(filepath.Separator) {
		rec.WorkFileName = "work.py"
	}
	rec.PgName = pgNameFor(sourcePath)

	rec.DerivePaths(s.ResourcesDir)

	if a.integration != "" {
		data, err := os.ReadFile(a.integration)
		if err != nil {
			return nil, fmt.Errorf("pipeline: read cr_integration_path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(rec.Paths.Integration), 0o755); err != nil {
			return nil, fmt.Errorf("pipeline: stage integration file: %w", err)
		}
		if err := os.WriteFile(rec.Paths.Integration, data, 0o644); err != nil {
			return nil, fmt.Errorf("pipeline: stage integration file: %w", err)
		}
	}

	rec.RefreshExistence()
	rec.DetermineEntryPhase()
	rec.UpToPhase = a.upTo
	rec.WorkDir = filepath.Dir(rec.Paths.Integration)
	rec.TempDir = filepath.Join(s.ResourcesDir, rec.PgName, "tmp")

	return rec, nil
}

// crIDFromFlags resolves the effective cr_id from the global flags: the
// deterministic sentinel under --testing, the explicit --cr_id otherwise,
// or "" to let buildRecord mint a fresh timestamp.
func crIDFromFlags() string {
	if flagTesting {
		return crstate.SentinelMax
	}
	return flagCRID
}

// pgNameFor derives a package name from a source path's immediate parent
// directory, falling back to "default" for a bare filename.
func pgNameFor(sourcePath string) string {
	if sourcePath == crstate.SourceNotYetCreated || sourcePath == "" {
		return "default"
	}
	dir := filepath.Base(filepath.Dir(sourcePath))
	if dir == "." || dir == string(filepath.Separator) || dir == "" {
		return "default"
	}
	return dir
}

// runPipeline drives rec through its declared phase range and, if
// processing ran, stages and optionally hot-writes the result.
func runPipeline(ctx context.Context, rec *crstate.Record, s *config.Settings, a runArgs, run *journal.Run) (*report.Report, error) {
	oc := oracle.New(s.OracleAddr(), s.GetOracleTimeout())

	var finalCode string
	var driverResult *driver.Result

	promptSpec := phase.Spec[string]{
		Name: crstate.PhasePrompt,
		Path: rec.Paths.Prompt,
		Produce: func(raw string) (string, error) {
			return renderPromptMarkdown(rec, raw), nil
		},
		Render: func(v string) string { return v },
	}

	jsonSpec := phase.Spec[repair.Record]{
		Name: crstate.PhaseJSON,
		Path: rec.Paths.JSON,
		Produce: func(raw string) (repair.Record, error) {
			promptText, err := os.ReadFile(rec.Paths.Prompt)
			if err != nil {
				return repair.Record{}, fmt.Errorf("read prompt phase output: %w", err)
			}
			run.Log(logging.CategoryOracle, "asking oracle for cr_id=%s", rec.CRID)
			answer, err := oc.Ask(ctx, string(promptText))
			if err != nil {
				return repair.Record{}, err
			}
			rec2, err := repair.RepairJSON(answer)
			if err != nil {
				return repair.Record{}, err
			}
			return *rec2, nil
		},
		Render: func(v repair.Record) string { return renderJSONRecord(v) },
	}

	integrationSpec := phase.Spec[string]{
		Name: crstate.PhaseIntegration,
		Path: rec.Paths.Integration,
		Produce: func(raw string) (string, error) {
			if !rec.JSONFileExists {
				return raw, nil
			}
			data, err := os.ReadFile(rec.Paths.JSON)
			if err != nil {
				return "", fmt.Errorf("read json phase output: %w", err)
			}
			var r repair.Record
			if err := json.Unmarshal(data, &r); err != nil {
				return "", fmt.Errorf("parse json phase output: %w", err)
			}
			return r.Code, nil
		},
		Render: func(v string) string { return v },
	}

	processingSpec := phase.Spec[string]{
		Name: crstate.PhaseProcessing,
		Path: rec.Paths.Processing,
		Produce: func(raw string) (string, error) {
			integrationText, err := os.ReadFile(rec.Paths.Integration)
			if err != nil {
				return "", fmt.Errorf("read integration phase output: %w", err)
			}
			directive, err := integration.Parse(rec.Paths.Integration, integrationText)
			if err != nil {
				return "", err
			}

			source, err := loadCurrentSource(rec)
			if err != nil {
				return "", err
			}
			tree, err := cst.Load(rec.SourcePath, source)
			if err != nil {
				return "", err
			}

			driverResult = driver.Run(tree, directive)
			run.Log(logging.CategoryDriver, "applied=%d unresolved=%d", driverResult.Applied, len(driverResult.Unresolved))
			finalCode = tree.Render()
			return finalCode, nil
		},
		Render: func(v string) string { return v },
	}

	d := &phase.Driver{
		Record: rec,
		Steps: map[crstate.Phase]phase.StepFunc{
			crstate.PhasePrompt:      phase.Closure(promptSpec),
			crstate.PhaseJSON:        phase.Closure(jsonSpec),
			crstate.PhaseIntegration: phase.Closure(integrationSpec),
			crstate.PhaseProcessing:  phase.Closure(processingSpec),
		},
		Inputs: map[crstate.Phase]string{
			crstate.PhasePrompt: a.description,
		},
	}

	if err := d.Run(); err != nil {
		return failureReport(rec, err), err
	}

	rep := &report.Report{
		Success: true,
		CRID:    rec.CRID,
		PgName:  rec.PgName,
		Phase:   rec.CurrentPhase,
		Hot:     false,
	}
	if driverResult != nil {
		rep.Applied = driverResult.Applied
		rep.Unresolved = driverResult.Unresolved
	}

	if rec.CurrentPhase != crstate.PhaseProcessing || finalCode == "" {
		return rep, nil
	}

	if a.black {
		formatted, warning := writer.Format(ctx, s.Formatter, []byte(finalCode), s.GetFormatTimeout())
		if warning != "" {
			rep.Warnings = append(rep.Warnings, warning)
		} else {
			finalCode = string(formatted)
			rep.Formatted = true
		}
	}

	before, err := os.ReadFile(rec.SourcePath)
	if err != nil {
		before = []byte("")
	}

	wres, err := writer.WriteProcessing(rec.SourcePath, rec.Paths.Processing, rec.Paths.Restore, []byte(finalCode), a.hot)
	if err != nil {
		return failureReport(rec, err), err
	}
	rep.Hot = wres.Hot
	if wres.Hot {
		rep.WithMetadata("restore_tombstone", wres.TombstonePath)
	}

	rep.Diff = diff.Unified(rec.SourcePath, rec.SourcePath, string(before), finalCode)

	return rep, nil
}

func failureReport(rec *crstate.Record, err error) *report.Report {
	return &report.Report{
		Success: false,
		CRID:    rec.CRID,
		PgName:  rec.PgName,
		Phase:   rec.CurrentPhase,
		Error:   err.Error(),
	}
}

// loadCurrentSource reads the work file's current content, or an empty
// module for a not-yet-created api=create work file.
func loadCurrentSource(rec *crstate.Record) ([]byte, error) {
	if rec.SourcePath == crstate.SourceNotYetCreated || rec.SourcePath == "" {
		return []byte(""), nil
	}
	data, err := os.ReadFile(rec.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte(""), nil
		}
		return nil, fmt.Errorf("pipeline: read source_path: %w", err)
	}
	return data, nil
}

// renderPromptMarkdown builds the prompt phase's on-disk markdown: a
// package header naming the CR plus the raw task description, giving the
// oracle everything it needs in one text blob.
func renderPromptMarkdown(rec *crstate.Record, description string) string {
	return fmt.Sprintf(
		"#--- cr_op: update, cr_type: file, cr_anc: %s, cr_id: %s ---#\n\n%s\n",
		rec.WorkFileName, rec.CRID, description,
	)
}

// renderJSONRecord renders a repair.Record back to the {"target","code"}
// shape the oracle itself emits, so re-entering the json phase parses the
// same way regardless of whether it came from the oracle or from disk.
func renderJSONRecord(r repair.Record) string {
	data, err := json.MarshalIndent(struct {
		Target string `json:"target"`
		Code   string `json:"code"`
	}{Target: r.Target, Code: r.Code}, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
