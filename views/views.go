// Package views holds the default page components. Sites that want their
// own markup pass their own quill.ViewFuncs instead.
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/quill"
)

// New returns the default ViewFuncs for cfg.
func New(cfg quill.SiteConfig) quill.ViewFuncs {
	return quill.ViewFuncs{
		Listing: Listing,
		Post:    Post,
		NotFound: func() templ.Component {
			return errorPage(cfg, "Page not found", "The page you are looking for does not exist.")
		},
		ServerError: func() templ.Component {
			return errorPage(cfg, "Something went wrong", "Please try again in a moment.")
		},
	}
}

func errorPage(cfg quill.SiteConfig, title, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><p>`)
		h.link("/", "Back to the front page", "")
		h.raw(`</p>`)
		return h.err
	})
	meta := quill.PageMeta{Title: title + " | " + cfg.Name, OGType: "website"}
	return layout(cfg, meta, "", nil, body)
}
