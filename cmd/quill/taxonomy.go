package main

import (
	"github.com/spf13/cobra"
)

func newCategoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "category", Short: "Manage categories"}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category unless it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := store.EnsureCategory(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("category %q has id %d\n", c.Name, c.ID)
			return nil
		},
	})
	return cmd
}

func newTagCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "tag", Short: "Manage tags"}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag unless it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.EnsureTag(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("tag %q has id %d\n", t.Name, t.ID)
			return nil
		},
	})
	return cmd
}
