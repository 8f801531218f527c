package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mulch"
	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/query"
	"github.com/spf13/cobra"
)

var (
	listJSON   bool
	filterTag  string
	listDrafts bool
	listWhere  []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts in the site",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		wd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get working directory", err)
		}

		site, err := mulch.Open(wd,
			mulch.WithAdapter(adapter),
			mulch.WithVersioning(!gitless),
			mulch.WithDevSafety(false),
			mulch.WithMustExist(true),
			mulch.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize mulch", err)
		}

		posts, err := site.Service.ListPosts(context.Background())
		if err != nil {
			fatal("Failed to list posts", err)
		}
		byID := make(map[string]core.Post, len(posts))
		for _, post := range posts {
			byID[post.ID] = post
		}

		where, err := query.Parse(listWhere)
		if err != nil {
			fatal("Invalid --where expression", err)
		}

		// The index drives the output order: newest first, slug as tiebreak.
		var filtered []core.Post
		for _, entry := range site.Index.Recent(0) {
			post, ok := byID[entry.Slug]
			if !ok {
				continue
			}
			if post.Draft() && !listDrafts {
				continue
			}
			if filterTag != "" && !hasTag(post, filterTag) {
				continue
			}
			if !where.Match(post) {
				continue
			}
			filtered = append(filtered, post)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, post := range filtered {
			title := ""
			if t := post.Title(); t != "" {
				title = fmt.Sprintf("- %s", t)
			}
			marker := ""
			if post.Draft() {
				marker = " [draft]"
			}
			fmt.Printf("%s %s%s\n", post.ID, title, marker)
		}
	},
}

func hasTag(p core.Post, tag string) bool {
	for _, t := range p.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter posts by tag")
	listCmd.Flags().BoolVar(&listDrafts, "drafts", false, "Include draft posts")
	listCmd.Flags().StringArrayVar(&listWhere, "where", nil, "Front matter filter (path=value or path!=value, repeatable)")
}
