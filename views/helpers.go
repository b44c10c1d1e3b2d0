package views

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// htmlWriter writes markup to w and remembers the first error, so the
// components can write a page without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text writes s with HTML escaping; it is safe for attribute values as well.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) link(href, label, class string) {
	h.raw(`<a href="`)
	h.text(href)
	h.raw(`"`)
	if class != "" {
		h.raw(` class="`)
		h.text(class)
		h.raw(`"`)
	}
	h.raw(`>`)
	h.text(label)
	h.raw(`</a>`)
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// FormatDate formats t the way post metadata shows dates.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// Plural returns "1 comment", "2 comments" etc.
func Plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
