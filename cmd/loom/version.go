package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentloom/loom"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loom version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loom version %s\n", loom.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
