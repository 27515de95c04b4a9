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

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Send a task description to the oracle and recover a JSON-phase record",
	RunE:  runPrompt,
}

// runPrompt drives the CR record through the prompt and json phases only:
// it builds the prompt-phase markdown from the task description, asks the
// oracle, and recovers a {target, code} record from its response.
func runPrompt(cmd *cobra.Command, args []string) error {
	description := flagJSONString
	if description == "" {
		data, err := io.ReadAll(os.Stdin)
		if err == nil {
			description = string(data)
		}
	}

	a := runArgs{
		api:         crstate.APIUpdate,
		crID:        crIDFromFlags(),
		sourcePath:  flagSourcePath,
		description: description,
		upTo:        crstate.PhaseJSON,
		hot:         false,
	}
	if flagPromptInfo {
		a.upTo = crstate.PhasePrompt
	}

	rec, err := buildRecord(settings, a)
	if err != nil {
		return err
	}

	run := journal.New()
	rep, err := runPipeline(context.Background(), rec, settings, a, run)
	if err != nil && rep == nil {
		return err
	}

	if flagPromptInfo {
		data, rerr := os.ReadFile(rec.Paths.Prompt)
		if rerr == nil {
			fmt.Println(string(data))
			return nil
		}
	}

	fmt.Print(rep.Render(flagVerbose))
	if !rep.Success {
		return fmt.Errorf("%s", rep.Error)
	}
	return nil
}
