package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eringen/quill"
)

func newImageCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "image", Short: "Manage uploaded images"}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <file>",
		Short: "Resize an image into the uploads directory",
		Long:  "Converts the image to JPEG, shrinks it to 800px wide when larger, and prints the Markdown to embed it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			img, err := quill.ImportImage(f, filepath.Base(args[0]), cfg.StaticDir)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			cmd.Printf("wrote %s (%dx%d, %d bytes)\n", img.Path, img.Width, img.Height, img.Size)
			cmd.Println(img.Markdown(img.Filename))
			return nil
		},
	})
	return cmd
}
