package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set via -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the canopy version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("canopy %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
