package main

import (
	"github.com/spf13/cobra"

	"crforge/internal/crstate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply a CR against an existing Python work file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateOrUpdate(cmd, args, crstate.APIUpdate)
	},
}
