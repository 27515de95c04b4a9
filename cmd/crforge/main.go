// Package main implements the crforge CLI entry point and command
// registration hub: this file owns rootCmd, global flags and init(); each
// api subcommand lives in its own cmd_*.go file.
//
// # File Index
//
//   - main.go         - entry point, rootCmd, global flags, init()
//   - pipeline.go      - shared phase-wiring used by prompt/create/update
//   - cmd_prompt.go    - prompt subcommand
//   - cmd_create.go    - create subcommand
//   - cmd_update.go    - update subcommand
//   - cmd_info.go      - info subcommand
//   - cmd_server.go    - server subcommand (directory watch)
//   - cmd_restore.go   - restore subcommand (manual archive restore)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crforge/internal/config"
	"crforge/internal/logging"
)

var (
	flagCRID         string
	flagSourcePath   string
	flagIntegration  string
	flagJSONString   string
	flagHard         bool
	flagBlack        bool
	flagTesting      bool
	flagPort         int
	flagInfos        bool
	flagPromptInfo   bool
	flagVerbose      int
	flagYes          bool
	flagResourcesDir string

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "crforge",
	Short: "crforge - offline, deterministic Python source refactoring engine",
	Long: `crforge applies change-request integration files to Python source
through a four-phase pipeline (prompt -> json -> integration -> processing),
resolving anchors, applying marker-stamped edits idempotently, and
optionally hot-writing the result back to source with a tombstoned backup.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("crforge: getwd: %w", err)
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: logging init failed: %v\n", err)
		}

		settingsPath := os.Getenv("CRFORGE_SETTINGS")
		if settingsPath == "" {
			settingsPath = "crforge_settings.yaml"
		}
		s, err := config.Load(settingsPath)
		if err != nil {
			return fmt.Errorf("crforge: load settings: %w", err)
		}
		if flagResourcesDir != "" {
			s.ResourcesDir = flagResourcesDir
		}
		if cmd.Flags().Changed("port") {
			s.Oracle.Port = flagPort
		}
		settings = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	// pflag shorthands are restricted to a single rune, so the two-letter
	// short forms for cr_id and prompt_info (-cr, -pi) are registered as
	// plain long flags instead; every other flag keeps its short form.
	rootCmd.PersistentFlags().StringVar(&flagCRID, "cr_id", "", "CR timestamp id (immutable once assigned)")
	rootCmd.PersistentFlags().StringVarP(&flagSourcePath, "source_path", "s", "", "Path to the Python work file")
	rootCmd.PersistentFlags().StringVarP(&flagIntegration, "cr_integration_path", "c", "", "Path to an integration file to stage directly")
	rootCmd.PersistentFlags().StringVarP(&flagJSONString, "json-string", "j", "", "Inline JSON payload for the json phase")
	rootCmd.PersistentFlags().BoolVar(&flagHard, "hard", false, "Hot-overwrite source_path after processing")
	rootCmd.PersistentFlags().BoolVarP(&flagBlack, "black", "b", false, "Pipe processed code through the configured formatter")
	rootCmd.PersistentFlags().BoolVarP(&flagTesting, "testing", "t", false, "Use the deterministic sentinel cr_id for tests")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 9005, "Oracle port override")
	rootCmd.PersistentFlags().BoolVarP(&flagInfos, "infos", "i", false, "Print the CR state record and exit")
	rootCmd.PersistentFlags().BoolVar(&flagPromptInfo, "prompt_info", false, "Print only the prompt-phase content and exit")
	rootCmd.PersistentFlags().IntVarP(&flagVerbose, "verbose", "v", 0, "Verbosity 0-2 (2 includes a unified diff)")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&flagResourcesDir, "resources_dir", "", "Override the configured resources directory")

	rootCmd.AddCommand(promptCmd, createCmd, updateCmd, infoCmd, serverCmd, restoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
