package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/quill"
)

// layout wraps body in the site chrome: head metadata, header, the sidebar
// when sidebar is non-nil, and footer.
func layout(cfg quill.SiteConfig, meta quill.PageMeta, jsonLD string, sidebar *quill.Sidebar, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(meta.Title)
		h.raw(`</title>`)
		if meta.Description != "" {
			h.raw(`<meta name="description" content="`)
			h.text(meta.Description)
			h.raw(`"><meta property="og:description" content="`)
			h.text(meta.Description)
			h.raw(`">`)
		}
		h.raw(`<meta property="og:title" content="`)
		h.text(meta.Title)
		h.raw(`"><meta property="og:type" content="`)
		h.text(meta.OGType)
		h.raw(`">`)
		if meta.URL != "" {
			h.raw(`<link rel="canonical" href="`)
			h.text(meta.URL)
			h.raw(`"><meta property="og:url" content="`)
			h.text(meta.URL)
			h.raw(`">`)
		}
		h.raw(`<link rel="stylesheet" href="/public/quill.css">`)
		h.raw(`<link rel="alternate" type="application/rss+xml" title="`)
		h.text(cfg.Name)
		h.raw(`" href="/feed.xml">`)
		if jsonLD != "" {
			h.raw(`<script type="application/ld+json">`)
			h.raw(jsonLD)
			h.raw(`</script>`)
		}
		h.raw(`</head><body><header class="site-header">`)
		h.link("/", cfg.Name, "site-title")
		if cfg.Description != "" {
			h.raw(`<p class="meta">`)
			h.text(cfg.Description)
			h.raw(`</p>`)
		}
		h.raw(`</header><div class="layout"><main>`)
		h.render(ctx, body)
		h.raw(`</main>`)
		if sidebar != nil {
			writeSidebar(h, *sidebar)
		}
		h.raw(`</div><footer class="site-footer">`)
		h.text(cfg.Name)
		if cfg.Author != "" {
			h.raw(` &middot; `)
			h.text(cfg.Author)
		}
		h.raw(` &middot; <a href="/feed.xml">RSS</a></footer></body></html>`)
		return h.err
	})
}

func writeSidebar(h *htmlWriter, sb quill.Sidebar) {
	h.raw(`<aside class="sidebar">`)
	if len(sb.Recent) > 0 {
		h.raw(`<section><h2>Recent posts</h2><ul>`)
		for _, p := range sb.Recent {
			h.raw(`<li>`)
			h.link(p.Link(), p.Title, "")
			h.raw(`</li>`)
		}
		h.raw(`</ul></section>`)
	}
	if len(sb.Archives) > 0 {
		h.raw(`<section><h2>Archives</h2><ul>`)
		for _, a := range sb.Archives {
			h.raw(`<li>`)
			h.link(a.Link(), a.Month.String()+" "+strconv.Itoa(a.Year), "")
			h.raw(` <span class="meta">(`)
			h.raw(strconv.Itoa(a.Count))
			h.raw(`)</span></li>`)
		}
		h.raw(`</ul></section>`)
	}
	if len(sb.Categories) > 0 {
		h.raw(`<section><h2>Categories</h2><ul>`)
		for _, c := range sb.Categories {
			h.raw(`<li>`)
			h.link(quill.CategoryLink(c), c.Name, "")
			h.raw(` <span class="meta">(`)
			h.raw(strconv.Itoa(c.Count))
			h.raw(`)</span></li>`)
		}
		h.raw(`</ul></section>`)
	}
	if len(sb.Tags) > 0 {
		h.raw(`<section><h2>Tags</h2><p>`)
		for _, t := range sb.Tags {
			h.link(quill.TagLink(t), t.Name, "tag")
		}
		h.raw(`</p></section>`)
	}
	h.raw(`</aside>`)
}
