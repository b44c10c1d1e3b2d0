package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/quill"
)

// Listing renders the index, category, tag and archive pages.
func Listing(page quill.ListingPage) templ.Component {
	meta := quill.PageMeta{
		Title:       page.Title,
		Description: page.Config.Description,
		OGType:      "website",
	}
	if page.Heading == "" {
		meta.URL = quill.BuildURL(page.Config.URL)
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if page.Heading != "" {
			h.raw(`<h1>`)
			h.text(page.Heading)
			h.raw(`</h1>`)
		}
		if len(page.Posts) == 0 {
			h.raw(`<p class="empty">No posts yet.</p>`)
		}
		for _, p := range page.Posts {
			writeSummary(h, p)
		}
		writePager(h, page.Pager)
		return h.err
	})
	return layout(page.Config, meta, quill.WebsiteJsonLD(page.Config), &page.Sidebar, body)
}

func writeSummary(h *htmlWriter, p quill.Post) {
	h.raw(`<article class="post-summary"><h2>`)
	h.link(p.Link(), p.Title, "")
	h.raw(`</h2>`)
	writeMeta(h, p)
	if p.Excerpt != "" {
		h.raw(`<p>`)
		h.text(p.Excerpt)
		h.raw(`</p>`)
	}
	h.link(p.Link(), "Read more", "more")
	h.raw(`</article>`)
}

func writeMeta(h *htmlWriter, p quill.Post) {
	h.raw(`<p class="meta"><time datetime="`)
	h.text(p.CreatedAt.Format("2006-01-02"))
	h.raw(`">`)
	h.text(FormatDate(p.CreatedAt))
	h.raw(`</time>`)
	if p.Author != "" {
		h.raw(` &middot; `)
		h.text(p.Author)
	}
	h.raw(` &middot; `)
	h.link(quill.CategoryLink(p.Category), p.Category.Name, "")
	h.raw(` &middot; `)
	h.text(Plural(p.Views, "view"))
	h.raw(`</p>`)
	if len(p.Tags) > 0 {
		h.raw(`<p class="tags">`)
		for _, t := range p.Tags {
			h.link(quill.TagLink(t), t.Name, "tag")
		}
		h.raw(`</p>`)
	}
}

// writePager renders the page links in order: previous, first, left
// ellipsis, left window, current, right window, right ellipsis, last, next.
func writePager(h *htmlWriter, pg quill.Pager) {
	if !pg.Show {
		return
	}
	item := func(page int, label, class string) {
		h.raw(`<li>`)
		h.link(pg.URL(page), label, class)
		h.raw(`</li>`)
	}
	ellipsis := func() {
		h.raw(`<li><span class="ellipsis">&hellip;</span></li>`)
	}

	h.raw(`<nav aria-label="Pagination"><ul class="pager">`)
	if pg.HasPrev {
		item(pg.Prev, "Previous", "prev")
	}
	if pg.Window.ShowFirst {
		item(1, "1", "first")
	}
	if pg.Window.LeftEllipsis {
		ellipsis()
	}
	for _, n := range pg.Window.Left {
		item(n, strconv.Itoa(n), "")
	}
	h.raw(`<li><span class="current" aria-current="page">`)
	h.raw(strconv.Itoa(pg.Page))
	h.raw(`</span></li>`)
	for _, n := range pg.Window.Right {
		item(n, strconv.Itoa(n), "")
	}
	if pg.Window.RightEllipsis {
		ellipsis()
	}
	if pg.Window.ShowLast {
		item(pg.TotalPages, strconv.Itoa(pg.TotalPages), "last")
	}
	if pg.HasNext {
		item(pg.Next, "Next", "next")
	}
	h.raw(`</ul></nav>`)
}
