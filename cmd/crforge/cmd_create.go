package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"crforge/internal/crstate"
	"crforge/internal/journal"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Apply a CR that creates a new Python work file",
	RunE:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	return runCreateOrUpdate(cmd, args, crstate.APICreate)
}

// runCreateOrUpdate drives the full prompt->json->integration->processing
// pipeline for a single CR and reports the result. create and update share
// this body; the API only changes how a missing source_path is treated
// (crstate.SourceNotYetCreated for create, an error for update, returned
// before any phase runs).
func runCreateOrUpdate(cmd *cobra.Command, args []string, api crstate.API) error {
	description := flagJSONString
	if description == "" && flagIntegration == "" {
		data, err := io.ReadAll(os.Stdin)
		if err == nil {
			description = string(data)
		}
	}

	a := runArgs{
		api:         api,
		crID:        crIDFromFlags(),
		sourcePath:  flagSourcePath,
		integration: flagIntegration,
		description: description,
		upTo:        crstate.PhaseProcessing,
		hot:         flagHard || settings.HotByDefault,
		black:       flagBlack,
	}

	rec, err := buildRecord(settings, a)
	if err != nil {
		return err
	}
	if api == crstate.APIUpdate && rec.SourcePath == crstate.SourceNotYetCreated {
		return fmt.Errorf("crforge: update requires an existing --source_path")
	}

	if flagInfos {
		fmt.Printf("cr_id: %s\npg_name: %s\napi: %s\nentry_phase: %s\nup_to_phase: %s\n",
			rec.CRID, rec.PgName, rec.API, rec.EntryPhase, rec.UpToPhase)
		return nil
	}

	run := journal.New()
	rep, err := runPipeline(context.Background(), rec, settings, a, run)
	if err != nil && rep == nil {
		return err
	}

	fmt.Print(rep.Render(flagVerbose))
	if !rep.Success {
		return fmt.Errorf("%s", rep.Error)
	}
	return nil
}
