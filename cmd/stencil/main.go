// Package main is the entry point for the stencil CLI.
package main

import (
	"errors"
	"os"

	"github.com/bookernath/stencil-cli/internal/cmd"
	"github.com/bookernath/stencil-cli/internal/output"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		output.Println(output.FormatFailure(err))

		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(cmd.ExitCodeFromError(err))
	}
}
