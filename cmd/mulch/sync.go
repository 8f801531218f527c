package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mulch"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the site with its remote (pull --rebase, then push)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		err = mulch.Sync(cwd,
			mulch.WithAdapter(adapter),
			mulch.WithVersioning(!gitless),
			mulch.WithDevSafety(false),
			mulch.WithMustExist(true),
			mulch.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to sync site", err)
		}

		fmt.Println("Site synchronized.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
