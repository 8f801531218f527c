package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/mulch"
	"github.com/aretw0/mulch/pkg/core"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	newTitle  string
	newSlug   string
	newTags   []string
	newSeries string
	newDraft  bool
)

var slugify = regexp.MustCompile(`[^a-z0-9]+`)

// slugFromTitle derives a URL-safe slug from a post title.
func slugFromTitle(title string) string {
	s := slugify.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new post",
	Long: `Create a post with front matter (title, date, tags, draft).
The slug is derived from the title unless --slug is given; on collision a
short unique suffix is appended.`,
	Run: func(cmd *cobra.Command, args []string) {
		if newTitle == "" {
			fmt.Println("Error: --title is required")
			cmd.Usage()
			os.Exit(1)
		}

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

		slug := newSlug
		if slug == "" {
			slug = slugFromTitle(newTitle)
		}

		ctx := context.Background()

		// Collision check: never overwrite an existing post from `new`.
		if _, err := service.GetPost(ctx, slug); err == nil {
			slug = slug + "-" + uuid.NewString()[:8]
		}

		metadata := core.Metadata{
			core.KeyTitle: newTitle,
			core.KeyDate:  time.Now().Format(time.RFC3339),
			core.KeyDraft: newDraft,
		}
		if len(newTags) > 0 {
			metadata[core.KeyTags] = newTags
		}
		if newSeries != "" {
			metadata[core.KeySeries] = newSeries
		}

		msg := mulch.FormatChangeReason(mulch.CommitTypeDocs, "posts", fmt.Sprintf("add %s", slug), "")
		ctx = context.WithValue(ctx, core.ChangeReasonKey, msg)

		if err := service.SavePost(ctx, slug, "", metadata); err != nil {
			fatal("Failed to create post", err)
		}

		fmt.Printf("Post '%s' created.\n", slug)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVar(&newTitle, "title", "", "Post title")
	newCmd.Flags().StringVar(&newSlug, "slug", "", "Post slug (defaults to slugified title)")
	newCmd.Flags().StringSliceVar(&newTags, "tag", nil, "Tags (repeatable)")
	newCmd.Flags().StringVar(&newSeries, "series", "", "Series name")
	newCmd.Flags().BoolVar(&newDraft, "draft", true, "Create as draft")
	newCmd.MarkFlagRequired("title")
}
