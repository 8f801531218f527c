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

var publishCmd = &cobra.Command{
	Use:   "publish <slug>",
	Short: "Clear the draft flag on a post",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDraftFlag(args[0], false)
	},
}

var unpublishCmd = &cobra.Command{
	Use:   "unpublish <slug>",
	Short: "Mark a post as draft again",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDraftFlag(args[0], true)
	},
}

func setDraftFlag(slug string, draft bool) {
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

	verb := "publish"
	if draft {
		verb = "unpublish"
	}
	msg := mulch.FormatChangeReason(mulch.CommitTypeDocs, "posts", fmt.Sprintf("%s %s", verb, slug), "")
	ctx := context.WithValue(context.Background(), core.ChangeReasonKey, msg)

	if draft {
		err = service.Unpublish(ctx, slug)
	} else {
		err = service.Publish(ctx, slug)
	}
	if err != nil {
		fatal(fmt.Sprintf("Failed to %s post", verb), err)
	}

	fmt.Printf("Post '%s' %sed.\n", slug, verb)
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(unpublishCmd)
}
