// Package main provides the entry point for the MatSight CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for MatSight.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matsight",
		Short: "Decode and visualize material analysis results",
		Long: `MatSight decodes the results of the material analysis service and turns
them into images and summaries.

It understands both result shapes the service produces:
- label grids, where every pixel of the processed image carries a layer label
- flake lists, where every detected flake carries a run-length encoded mask

Rendering works offline from saved analysis files. The analyze and images
commands talk to the remote service configured in .matsight.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .matsight in current or home directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewImagesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
