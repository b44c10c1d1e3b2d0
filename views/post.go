package views

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/quill"
	"github.com/eringen/quill/markdown"
)

// Post renders a post with its table of contents, comments and comment form.
func Post(page quill.PostPage) templ.Component {
	p := page.Post
	meta := quill.PageMeta{
		Title:       p.Title + " | " + page.Config.Name,
		Description: p.Excerpt,
		URL:         quill.BuildURL(page.Config.URL, "posts", p.Slug),
		OGType:      "article",
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<article class="post"><h1>`)
		h.text(p.Title)
		h.raw(`</h1>`)
		writeMeta(h, p)
		writeTOC(h, page.Content.TOC)
		h.raw(`<div class="post-body">`)
		h.render(ctx, page.Content.Component())
		h.raw(`</div></article>`)
		writeComments(h, page.Comments)
		writeCommentForm(h, p, page.Form, page.CSRFToken)
		return h.err
	})
	return layout(page.Config, meta, quill.BlogPostingJsonLD(p, page.Config), &page.Sidebar, body)
}

// writeTOC nests headings by level. Documents with fewer than two headings
// get no table of contents.
func writeTOC(h *htmlWriter, toc []markdown.Heading) {
	if len(toc) < 2 {
		return
	}
	base := toc[0].Level
	for _, hd := range toc {
		base = min(base, hd.Level)
	}
	h.raw(`<nav class="toc"><strong>Contents</strong>`)
	depth := 0
	for i, hd := range toc {
		level := hd.Level - base + 1
		switch {
		case level > depth:
			for ; depth < level; depth++ {
				h.raw(`<ul><li>`)
			}
		case level < depth:
			for ; depth > level; depth-- {
				h.raw(`</li></ul>`)
			}
			h.raw(`</li><li>`)
		case i > 0:
			h.raw(`</li><li>`)
		}
		h.link("#"+hd.ID, hd.Text, "")
	}
	for ; depth > 0; depth-- {
		h.raw(`</li></ul>`)
	}
	h.raw(`</nav>`)
}

func writeComments(h *htmlWriter, comments []quill.Comment) {
	h.raw(`<section id="comments" class="comments"><h2>`)
	h.text(Plural(len(comments), "comment"))
	h.raw(`</h2>`)
	for _, c := range comments {
		h.raw(`<div class="comment" id="comment-`)
		h.text(c.ID)
		h.raw(`"><p class="meta"><strong>`)
		if href := markdown.SafeURL(c.URL); href != "" {
			h.raw(`<a rel="nofollow ugc" href="`)
			h.raw(href)
			h.raw(`">`)
			h.text(c.Name)
			h.raw(`</a>`)
		} else {
			h.text(c.Name)
		}
		h.raw(`</strong> &middot; `)
		h.text(FormatDate(c.CreatedAt))
		h.raw(`</p>`)
		writeParagraphs(h, c.Text)
		h.raw(`</div>`)
	}
	h.raw(`</section>`)
}

// writeParagraphs renders plain comment text, one paragraph per blank-line
// separated block, with single newlines kept as line breaks.
func writeParagraphs(h *htmlWriter, text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		h.raw(`<p>`)
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				h.raw(`<br>`)
			}
			h.text(line)
		}
		h.raw(`</p>`)
	}
}

func writeCommentForm(h *htmlWriter, p quill.Post, form quill.CommentForm, token string) {
	h.raw(`<form class="comment-form" method="post" action="`)
	h.text(p.Link() + "comments/")
	h.raw(`"><h2>Leave a comment</h2><input type="hidden" name="_csrf" value="`)
	h.text(token)
	h.raw(`">`)
	if msg := form.Errors["form"]; msg != "" {
		h.raw(`<p class="error">`)
		h.text(msg)
		h.raw(`</p>`)
	}
	field := func(name, label, typ, value string, maxLen int, required bool) {
		h.raw(`<label for="comment-` + name + `">`)
		h.text(label)
		h.raw(`</label>`)
		attrs := ` id="comment-` + name + `" name="` + name + `" maxlength="` + strconv.Itoa(maxLen) + `"`
		if required {
			attrs += ` required`
		}
		if typ == "textarea" {
			h.raw(`<textarea rows="6"` + attrs + `>`)
			h.text(value)
			h.raw(`</textarea>`)
		} else {
			h.raw(`<input type="` + typ + `"` + attrs + ` value="`)
			h.text(value)
			h.raw(`">`)
		}
		if msg := form.Errors[name]; msg != "" {
			h.raw(`<p class="error">`)
			h.text(msg)
			h.raw(`</p>`)
		}
	}
	field("name", "Name", "text", form.Name, 100, true)
	field("email", "Email (not published)", "email", form.Email, 100, true)
	field("url", "Website", "url", form.URL, 200, false)
	field("text", "Comment", "textarea", form.Text, 5000, true)
	h.raw(`<p><button type="submit">Post comment</button></p></form>`)
}
