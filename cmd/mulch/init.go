package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/mulch"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new site",
	Long:  `Create the site directory, the git repository and the system directory.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		_, err := mulch.Init(path,
			mulch.WithAutoInit(true),
			mulch.WithVersioning(!gitless),
			mulch.WithDevSafety(false),
			mulch.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize site", err)
		}

		fmt.Printf("Site initialized at %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
