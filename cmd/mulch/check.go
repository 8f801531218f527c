package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mulch"
	"github.com/aretw0/mulch/pkg/links"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit internal links across all posts",
	Long: `Scan every post for Markdown links and report internal links that do
not resolve to another post. External links are counted but never fetched.`,
	Args: cobra.NoArgs,
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
			mulch.WithReadOnly(true),
			mulch.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize mulch", err)
		}

		posts, err := service.ListPosts(context.Background())
		if err != nil {
			fatal("Failed to list posts", err)
		}

		total, external := 0, 0
		for _, p := range posts {
			for _, l := range links.Extract(p) {
				total++
				if l.External {
					external++
				}
			}
		}

		issues := links.Audit(posts)
		for _, issue := range issues {
			fmt.Printf("%s:%d: broken link [%s](%s): %s\n",
				issue.Slug, issue.Line, issue.Text, issue.Target, issue.Reason)
		}

		fmt.Printf("Checked %d posts, %d links (%d external): %d broken.\n",
			len(posts), total, external, len(issues))

		if len(issues) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
