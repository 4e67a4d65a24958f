package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stencil CLI version",
		Run: func(_ *cobra.Command, _ []string) {
			output.Println("stencil " + version.Version)
		},
	}
}
