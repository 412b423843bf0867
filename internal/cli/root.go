// Package cli implements the forgeloop CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "forgeloop",
	Short: "Drive a coding agent through build-repair loops",
	Long: `Forgeloop drives an external coding agent and a build toolchain through
bounded build-fix cycles per workspace, with session continuity, persistent
fix memory, and a daily spend cap.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(fixesCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(workspaceCmd)
}
