package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"pokebattle/internal/protocol"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pokebattle %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		fmt.Fprintf(out, "protocol version %d\n", protocol.Version)
		fmt.Fprintf(out, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
