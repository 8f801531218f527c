package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mulch"
	"github.com/spf13/cobra"
)

var readMetaOnly bool

var readCmd = &cobra.Command{
	Use:   "read <slug>",
	Short: "Read a post",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		service, err := mulch.New(cwd,
			mulch.WithAdapter(adapter),
			mulch.WithVersioning(!gitless),
			mulch.WithDevSafety(false),
			mulch.WithMustExist(true),
			mulch.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize mulch", err)
		}

		post, err := service.GetPost(context.Background(), args[0])
		if err != nil {
			fatal("Failed to read post", err)
		}

		if readMetaOnly {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(post.Metadata); err != nil {
				fatal("Failed to encode metadata", err)
			}
			return
		}

		fmt.Println(post.Content)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readMetaOnly, "meta", false, "Print front matter as JSON instead of the body")
}
