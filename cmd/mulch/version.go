package main

import (
	"fmt"

	"github.com/aretw0/mulch"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mulch version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mulch %s\n", mulch.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
