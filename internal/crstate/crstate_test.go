package crstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetCRIDImmutable(t *testing.T) {
	var r Record
	if err := r.SetCRID("20260730-101500"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SetCRID("20260730-101500"); err != nil {
		t.Fatalf("re-setting the same cr_id should succeed: %v", err)
	}
	if err := r.SetCRID("20260730-999999"); err == nil {
		t.Fatal("expected error when changing an already-set cr_id")
	}
}

func TestDerivePathsLayout(t *testing.T) {
	r := Record{CRID: "20260730-101500", PgName: "worker_pkg", WorkFileName: "worker.py"}
	r.DerivePaths("/resources")
	want := Paths{
		Prompt:      "/resources/worker_pkg/prompts/cr_20260730-101500_worker.md",
		JSON:        "/resources/worker_pkg/jsons/cr_20260730-101500_worker.json",
		Integration: "/resources/worker_pkg/integrations/cr_20260730-101500_worker.py",
		Processing:  "/resources/worker_pkg/processing/cr_20260730-101500_worker.py",
		Restore:     "/resources/worker_pkg/worker_pkg_archive/cr_20260730-101500_worker.py",
		Log:         "/resources/worker_pkg/logs/cr_20260730-101500_worker.py",
	}
	if r.Paths != want {
		t.Fatalf("got %+v, want %+v", r.Paths, want)
	}
}

func TestDetermineEntryPhase(t *testing.T) {
	r := Record{IntegrationFileExists: true}
	r.DetermineEntryPhase()
	if r.EntryPhase != PhaseIntegration {
		t.Fatalf("expected entry phase integration, got %s", r.EntryPhase)
	}

	var empty Record
	empty.DetermineEntryPhase()
	if empty.EntryPhase != PhasePrompt {
		t.Fatalf("expected default entry phase prompt, got %s", empty.EntryPhase)
	}
}

func TestAdvancePhaseRejectsRegression(t *testing.T) {
	var r Record
	if err := r.AdvancePhase(PhaseIntegration); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.AdvancePhase(PhaseJSON); err == nil {
		t.Fatal("expected regression to be rejected")
	}
	if err := r.AdvancePhase(PhaseProcessing); err != nil {
		t.Fatalf("unexpected error advancing forward: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := Record{CRID: "20260730-101500", PgName: "pkg", WorkFileName: "x.py", API: APIUpdate}
	r.DerivePaths(dir)
	if err := r.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(r.Paths.Log)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.CRID != r.CRID || loaded.PgName != r.PgName {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, r)
	}
}

func TestResolveSourcePathFindsNestedFile(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "pkg", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(sub, "worker.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveSourcePath(root, "worker.py", nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != target {
		t.Fatalf("got %q, want %q", got, target)
	}
}

func TestResolveSourcePathSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	ignored := filepath.Join(root, ".git")
	if err := os.MkdirAll(ignored, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ignored, "worker.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveSourcePath(root, "worker.py", []string{".git"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != SourceNotYetCreated {
		t.Fatalf("expected not-found sentinel, got %q", got)
	}
}

func TestExtractEmbeddedCRID(t *testing.T) {
	got, err := ExtractEmbeddedCRID("cr_2026-07-30-10-15-00_worker.py", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2026-07-30-10-15-00" {
		t.Fatalf("got %q", got)
	}

	if _, err := ExtractEmbeddedCRID("cr_2026-07-30-10-15-00_worker.py", "2026-07-30-10-16-00"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestParseTimeStampSentinels(t *testing.T) {
	if _, err := ParseTimeStamp(SentinelMax); err != nil {
		t.Fatalf("sentinel max should bypass validation: %v", err)
	}
	if _, err := ParseTimeStamp(SentinelMin); err != nil {
		t.Fatalf("sentinel min should bypass validation: %v", err)
	}
	if _, err := ParseTimeStamp("not-a-date"); err == nil {
		t.Fatal("expected an invalid timestamp to fail")
	}
}
