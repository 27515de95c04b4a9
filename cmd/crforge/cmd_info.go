package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crforge/internal/crstate"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the CR state record for an existing cr_id/source_path pair",
	RunE:  runInfo,
}

// runInfo loads and prints a previously saved CR State Record without
// driving any further phase transitions.
func runInfo(cmd *cobra.Command, args []string) error {
	a := runArgs{
		api:        crstate.APIUpdate,
		crID:       crIDFromFlags(),
		sourcePath: flagSourcePath,
	}
	rec, err := buildRecord(settings, a)
	if err != nil {
		return err
	}

	if rec.ProcessingFileExists || rec.IntegrationFileExists || rec.JSONFileExists || rec.PromptFileExists {
		if loaded, err := crstate.Load(rec.Paths.Log); err == nil {
			rec = loaded
			rec.RefreshExistence()
		}
	}

	fmt.Printf("cr_id: %s\n", rec.CRID)
	fmt.Printf("pg_name: %s\n", rec.PgName)
	fmt.Printf("api: %s\n", rec.API)
	fmt.Printf("current_phase: %s\n", rec.CurrentPhase)
	fmt.Printf("entry_phase: %s\n", rec.EntryPhase)
	fmt.Printf("source_path: %s\n", rec.SourcePath)
	fmt.Printf("prompt_file_exists: %v\n", rec.PromptFileExists)
	fmt.Printf("json_file_exists: %v\n", rec.JSONFileExists)
	fmt.Printf("integration_file_exists: %v\n", rec.IntegrationFileExists)
	fmt.Printf("processing_file_exists: %v\n", rec.ProcessingFileExists)

	if flagVerbose >= 1 {
		fmt.Printf("prompt_path: %s\n", rec.Paths.Prompt)
		fmt.Printf("json_path: %s\n", rec.Paths.JSON)
		fmt.Printf("integration_path: %s\n", rec.Paths.Integration)
		fmt.Printf("processing_path: %s\n", rec.Paths.Processing)
		fmt.Printf("restore_path: %s\n", rec.Paths.Restore)
	}
	return nil
}
