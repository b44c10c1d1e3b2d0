// Command quill serves a quill blog and manages its content from the shell.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/quill"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	database   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "quill",
		Short:        "quill - a blog engine built with Go, Echo, and templ",
		Version:      version,
		SilenceUsage: true,
		Example: `  # Serve the blog
  quill serve --config quill.yaml

  # Publish a post written in Markdown with YAML front matter
  quill post import hello.md

  # Add an image and print the Markdown to reference it
  quill image add photo.png`,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&opts.database, "database", "", "SQLite database path (overrides config)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPostCmd(opts),
		newCategoryCmd(opts),
		newTagCmd(opts),
		newImageCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *options) load() (quill.SiteConfig, error) {
	cfg, err := quill.LoadConfig(o.configPath)
	if err != nil {
		return quill.SiteConfig{}, err
	}
	if o.database != "" {
		cfg.DatabasePath = o.database
	}
	return cfg, nil
}

func (o *options) openStore() (*quill.Store, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return quill.NewStore(cfg.DatabasePath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quill version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("quill %s\n", version)
		},
	}
}
