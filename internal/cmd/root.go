package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/version"
)

var flagVerbose bool

// NewRootCmd builds the stencil root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stencil",
		Short: "Stencil theme packaging and deployment",
		Long: `Stencil packages a themed storefront into a deployable artifact and
drives the remote deployment workflow.

It provides commands to:
  - Bundle a theme as a portable archive or a statically-linked edge bundle
  - Push a bundle to a store, handle theme-slot quota, and activate a variation`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			output.SetupLogging(flagVerbose)
			output.Debug("stencil CLI started", "version", version.Version)
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "increase output verbosity")

	root.AddCommand(NewBundleCmd())
	root.AddCommand(NewPushCmd())
	root.AddCommand(NewVersionCmd())

	return root
}
