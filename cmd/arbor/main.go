package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var rootCmd = &cobra.Command{
	Use:     "arbor",
	Short:   "Incremental parse coordination for editor buffers",
	Version: Version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
