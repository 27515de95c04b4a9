package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <tombstoned-backup-path>",
	Short: "Restore a tombstoned backup copy over its original source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

// runRestore copies a tombstoned restore-path backup back over the source
// file it was taken from. Destructive and non-interactive, so it requires
// --yes to confirm before overwriting.
func runRestore(cmd *cobra.Command, args []string) error {
	backupPath := args[0]
	if !flagYes {
		return fmt.Errorf("crforge: restore is destructive; pass --yes to confirm restoring %s over %s", backupPath, flagSourcePath)
	}
	if flagSourcePath == "" {
		return fmt.Errorf("crforge: restore requires --source_path, the file to overwrite")
	}
	if !isTombstoned(backupPath) {
		return fmt.Errorf("crforge: %s is not a tombstoned backup (expected a '#'-prefixed filename)", backupPath)
	}

	if err := copyFileInPlace(backupPath, flagSourcePath); err != nil {
		return fmt.Errorf("crforge: restore: %w", err)
	}
	fmt.Printf("restored %s -> %s\n", backupPath, flagSourcePath)
	return nil
}

func isTombstoned(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "#")
}

func copyFileInPlace(src, dst string) error {
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
