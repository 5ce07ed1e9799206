package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for verifier
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifier",
		Short: "Camera-based liveness verification for identity applications",
		Long: `Verifier walks an applicant through a short sequence of randomly chosen
liveness tasks (look up, blink, smile...) in front of the camera, scores the
attempts and submits the application once every task is resolved.

Configuration is loaded from .verifier/config.yaml if present.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewTasksCommand())
	cmd.AddCommand(NewValidateCommand())

	return cmd
}
