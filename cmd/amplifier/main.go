package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"amplifier/internal/utils"
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Color definitions for CLI output
var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// NewRootCommand builds the amplifier command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "amplifier",
		Short: "Layered agent configuration and session management",
		Long: fmt.Sprintf(`%s

Amplifier resolves layered agent configuration (user and project settings,
profile inheritance chains, agent overlays) into a single effective
configuration with full provenance, and manages session transcripts on disk.

%s
  amplifier profile show                 # Effective configuration
  amplifier profile show --detailed      # With per-field provenance
  amplifier session list                 # Sessions for this project
  amplifier session show session_123     # Replay a transcript
  amplifier session clean --days 30      # Remove stale sessions`,
			bold("Amplifier "+utils.Version),
			bold("EXAMPLES:")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newProfileCommand())
	rootCmd.AddCommand(newSessionCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// newVersionCommand creates the version subcommand
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version: %s\n", utils.GetVersion())
		},
	}
}

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}
