package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eringen/quill"
)

func newPostCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}
	cmd.AddCommand(newPostImportCmd(opts), newPostListCmd(opts), newPostDeleteCmd(opts))
	return cmd
}

func newPostImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.md>...",
		Short: "Publish Markdown files with YAML front matter",
		Long: `Each file starts with a front matter block:

  ---
  title: Hello
  category: Go
  tags: [go, web]
  date: 2024-03-01
  ---

Re-importing a slug updates the post in place and keeps its view count.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, path := range args {
				post, err := importFile(store, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				cmd.Printf("published %s -> %s\n", path, post.Link())
			}
			return nil
		},
	}
}

func importFile(store *quill.Store, path string) (quill.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return quill.Post{}, err
	}
	defer f.Close()
	draft, err := quill.ParseDraft(f)
	if err != nil {
		return quill.Post{}, err
	}
	return store.Publish(draft)
}

func newPostListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			posts, err := store.ListPosts(quill.PostFilter{}, -1, 0)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSLUG\tCATEGORY\tVIEWS\tTITLE")
			for _, p := range posts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.CreatedAt.Format("2006-01-02"), p.Slug, p.Category.Name, p.Views, p.Title)
			}
			return w.Flush()
		},
	}
}

func newPostDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeletePost(args[0]); err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
