package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mulch"
	"github.com/aretw0/mulch/pkg/core"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a post",
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

		slug := args[0]
		msg := mulch.FormatChangeReason(mulch.CommitTypeDocs, "posts", fmt.Sprintf("remove %s", slug), "")
		ctx := context.WithValue(context.Background(), core.ChangeReasonKey, msg)

		if err := service.DeletePost(ctx, slug); err != nil {
			fatal("Failed to delete post", err)
		}

		fmt.Printf("Post '%s' deleted.\n", slug)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
