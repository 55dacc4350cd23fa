package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the ss version",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so no client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(map[string]string{"version": version, "go": runtime.Version()})
		}
		fmt.Printf("ss %s (%s)\n", version, runtime.Version())
		return nil
	},
}
