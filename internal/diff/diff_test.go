package diff

import (
	"strings"
	"testing"
)

func TestUnifiedRendersHeaderAndHunks(t *testing.T) {
	out := Unified("worker.py", "worker.py", "x = 1\ny = 2\n", "x = 1\ny = 3\n")
	if !strings.HasPrefix(out, "--- worker.py\n+++ worker.py\n") {
		t.Fatalf("missing unified diff header: %q", out)
	}
	if !strings.Contains(out, "-y = 2") || !strings.Contains(out, "+y = 3") {
		t.Fatalf("expected changed lines in %q", out)
	}
}

func TestUnifiedEmptyForIdenticalContent(t *testing.T) {
	out := Unified("a.py", "a.py", "same\n", "same\n")
	if out != "" {
		t.Fatalf("expected empty diff for identical content, got %q", out)
	}
}

func TestUnifiedMarksAddedLineForNewFile(t *testing.T) {
	out := Unified("", "new.py", "", "new file content\nline 2\n")
	if !strings.Contains(out, "+new file content") || !strings.Contains(out, "+line 2") {
		t.Fatalf("expected both lines marked as added, got %q", out)
	}
}

func TestUnifiedMarksRemovedLineForDeletedFile(t *testing.T) {
	out := Unified("old.py", "", "old file content\nline 2\n", "")
	if !strings.Contains(out, "-old file content") || !strings.Contains(out, "-line 2") {
		t.Fatalf("expected both lines marked as removed, got %q", out)
	}
}

func TestUnifiedSplitsDistantChangesIntoSeparateHunks(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		oldLines = append(oldLines, "line")
		newLines = append(newLines, "line")
	}
	newLines[1] = "CHANGED_NEAR_TOP"
	newLines[18] = "CHANGED_NEAR_BOTTOM"

	out := Unified("old.py", "new.py", strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")
	if strings.Count(out, "@@") != 4 {
		t.Fatalf("expected two hunk headers (4 '@@' markers), got:\n%s", out)
	}
}

func TestUnifiedIncludesSurroundingContext(t *testing.T) {
	out := Unified("old.py", "new.py", "line1\nline2\nline3\nline4\nline5\n", "line1\nline2\nCHANGED\nline4\nline5\n")
	if !strings.Contains(out, " line2") || !strings.Contains(out, " line4") {
		t.Fatalf("expected unchanged context lines around the change, got:\n%s", out)
	}
}
