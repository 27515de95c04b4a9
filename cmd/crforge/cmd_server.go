package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crforge/internal/crstate"
	"crforge/internal/journal"
	"crforge/internal/logging"
	"crforge/internal/watch"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Watch a package's integrations directory and apply new CRs as they appear",
	RunE:  runServer,
}

// runServer watches <resources_dir>/<pg_name>/integrations for new or
// modified .py files and applies each one as an update CR, non-interactively.
func runServer(cmd *cobra.Command, args []string) error {
	pgName := pgNameFor(flagSourcePath)
	watchDir := settings.ResourcesDir + string(os.PathSeparator) + pgName + string(os.PathSeparator) + "integrations"
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		return fmt.Errorf("crforge: server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := watch.New(watchDir, ".py", func(path string) {
		if err := applyWatchedIntegration(ctx, path); err != nil {
			logging.Get(logging.CategoryCLI).Error("server: failed to apply %s: %v", path, err)
		}
	})
	if err != nil {
		return fmt.Errorf("crforge: server: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("crforge: server: %w", err)
	}
	defer w.Stop()

	fmt.Printf("watching %s for integration files (ctrl-c to stop)\n", watchDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func applyWatchedIntegration(ctx context.Context, integrationPath string) error {
	a := runArgs{
		api:         crstate.APIUpdate,
		crID:        flagCRID,
		sourcePath:  flagSourcePath,
		integration: integrationPath,
		upTo:        crstate.PhaseProcessing,
		hot:         flagHard || settings.HotByDefault,
		black:       flagBlack,
	}
	rec, err := buildRecord(settings, a)
	if err != nil {
		return err
	}
	run := journal.New()
	rep, err := runPipeline(ctx, rec, settings, a, run)
	if err != nil {
		return err
	}
	fmt.Print(rep.Render(flagVerbose))
	return nil
}
