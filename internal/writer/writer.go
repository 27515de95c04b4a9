// Package writer stages the processing phase's output, optionally performs
// a hot overwrite of the original source with a tombstoned restore copy,
// and optionally pipes the result through an external formatter executable
// over stdin/stdout, bounded by a context timeout, with a non-fatal
// failure path when the formatter is missing or exits non-zero.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"crforge/internal/logging"
)

// Result reports what the writer actually did, for the CR State Record log
// and CLI verbose output.
type Result struct {
	ProcessingPath string
	Hot            bool
	RestorePath    string
	TombstonePath  string
	Formatted      bool
	FormatWarning  string
}

// WriteProcessing stages code at processingPath, always. When hot is true
// and sourcePath names an existing file, it additionally backs sourcePath
// up to restorePath, overwrites sourcePath with code, then tombstones the
// backup by prepending "#" to its name.
func WriteProcessing(sourcePath, processingPath, restorePath string, code []byte, hot bool) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(processingPath), 0o755); err != nil {
		return nil, fmt.Errorf("writer: mkdir processing dir: %w", err)
	}
	if err := os.WriteFile(processingPath, code, 0o644); err != nil {
		return nil, fmt.Errorf("writer: write processing file: %w", err)
	}
	logging.Writer("wrote processing file %s (%d bytes)", processingPath, len(code))

	result := &Result{ProcessingPath: processingPath}
	if !hot {
		return result, nil
	}
	if _, err := os.Stat(sourcePath); err != nil {
		logging.Get(logging.CategoryWriter).Warn("hot write requested but source_path %s does not exist, skipping overwrite", sourcePath)
		return result, nil
	}

	if err := os.MkdirAll(filepath.Dir(restorePath), 0o755); err != nil {
		return nil, fmt.Errorf("writer: mkdir restore dir: %w", err)
	}
	if err := copyFile(sourcePath, restorePath); err != nil {
		return nil, fmt.Errorf("writer: backup source before hot write: %w", err)
	}
	logging.Writer("backed up %s -> %s", sourcePath, restorePath)

	if err := os.WriteFile(sourcePath, code, 0o644); err != nil {
		return nil, fmt.Errorf("writer: hot overwrite source: %w", err)
	}
	logging.Writer("hot-overwrote %s (%d bytes)", sourcePath, len(code))

	tombstone := tombstonePath(restorePath)
	if err := os.Rename(restorePath, tombstone); err != nil {
		return nil, fmt.Errorf("writer: tombstone restore copy: %w", err)
	}
	logging.Writer("tombstoned restore copy %s -> %s", restorePath, tombstone)

	result.Hot = true
	result.RestorePath = restorePath
	result.TombstonePath = tombstone
	return result, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func tombstonePath(restorePath string) string {
	dir, base := filepath.Split(restorePath)
	return filepath.Join(dir, "#"+base)
}

// Format pipes code through the named external formatter executable over
// stdin/stdout, bounded by timeout. A missing executable or non-zero exit
// leaves code unchanged and returns a warning string instead of an error.
func Format(ctx context.Context, executable string, code []byte, timeout time.Duration) (formatted []byte, warning string) {
	if executable == "" {
		return code, ""
	}
	if _, err := exec.LookPath(executable); err != nil {
		return code, fmt.Sprintf("formatter %q not found: %v", executable, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, executable)
	cmd.Stdin = bytes.NewReader(code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return code, fmt.Sprintf("formatter %q timed out after %s", executable, timeout)
		}
		return code, fmt.Sprintf("formatter %q failed: %v (stderr: %s)", executable, err, stderr.String())
	}
	return stdout.Bytes(), ""
}
