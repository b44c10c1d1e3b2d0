// Package markdown renders the Markdown subset used by post bodies into
// escaped HTML, collects a table of contents and derives plain-text excerpts.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`_([^_]+)_`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)(\^)?`)
	reImg              = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reHeading          = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reOrderedItem      = regexp.MustCompile(`^\d+\.\s+`)
	reTag              = regexp.MustCompile(`<[^>]*>`)
	reBlockEnd         = regexp.MustCompile(`</(?:p|li|h[1-6]|th|td|tr|blockquote|pre)>|<hr/>`)
	reSpace            = regexp.MustCompile(`\s+`)

	// placeholderMarks drops the bytes FormatInline uses for placeholders.
	placeholderMarks = strings.NewReplacer("\x00", "", "\x01", "")
)

// Heading is one entry of a document's table of contents.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Document is rendered Markdown.
type Document struct {
	HTML string
	TOC  []Heading
}

// Component returns the HTML of doc as a templ component.
func (d Document) Component() templ.Component {
	return templ.Raw(d.HTML)
}

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Render(md).HTML)
		return err
	})
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockTable
	blockCode
)

type renderer struct {
	buf      bytes.Buffer
	open     block
	tableRow int
	toc      []Heading
	ids      map[string]int
}

// Render converts md to HTML. Every line of text is escaped before inline
// formatting is applied, so raw HTML in md is never emitted.
func Render(md string) Document {
	r := &renderer{ids: make(map[string]int)}
	for _, raw := range strings.Split(md, "\n") {
		r.line(strings.TrimRight(raw, "\r"))
	}
	r.close()
	return Document{HTML: r.buf.String(), TOC: r.toc}
}

func (r *renderer) line(line string) {
	if strings.HasPrefix(line, "```") {
		if r.open == blockCode {
			r.close()
			return
		}
		r.close()
		r.open = blockCode
		if lang := html.EscapeString(strings.TrimSpace(line[3:])); lang != "" {
			r.buf.WriteString(`<pre class="code-block"><code class="language-` + lang + `">`)
		} else {
			r.buf.WriteString(`<pre class="code-block"><code>`)
		}
		return
	}
	if r.open == blockCode {
		r.buf.WriteString(html.EscapeString(line))
		r.buf.WriteByte('\n')
		return
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		r.close()
	case strings.HasPrefix(trimmed, "---"):
		r.close()
		r.buf.WriteString("<hr/>\n")
	case reHeading.MatchString(trimmed):
		r.close()
		m := reHeading.FindStringSubmatch(trimmed)
		r.heading(len(m[1]), strings.TrimSpace(m[2]))
	case strings.HasPrefix(trimmed, "|"):
		r.tableLine(trimmed)
	case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
		r.enter(blockList, "<ul>")
		r.buf.WriteString("<li>" + FormatInline(strings.TrimSpace(trimmed[2:])) + "</li>")
	case reOrderedItem.MatchString(trimmed):
		r.enter(blockOrdered, "<ol>")
		r.buf.WriteString("<li>" + FormatInline(reOrderedItem.ReplaceAllString(trimmed, "")) + "</li>")
	case strings.HasPrefix(trimmed, ">"):
		r.enter(blockQuote, "<blockquote>")
		r.buf.WriteString("<p>" + FormatInline(strings.TrimSpace(trimmed[1:])) + "</p>")
	default:
		if r.open == blockPara {
			r.buf.WriteByte(' ')
		}
		r.enter(blockPara, "<p>")
		r.buf.WriteString(FormatInline(trimmed))
	}
}

// enter opens b unless it is already the current block.
func (r *renderer) enter(b block, tag string) {
	if r.open == b {
		return
	}
	r.close()
	r.open = b
	r.buf.WriteString(tag)
}

func (r *renderer) close() {
	switch r.open {
	case blockPara:
		r.buf.WriteString("</p>\n")
	case blockList:
		r.buf.WriteString("</ul>\n")
	case blockOrdered:
		r.buf.WriteString("</ol>\n")
	case blockQuote:
		r.buf.WriteString("</blockquote>\n")
	case blockTable:
		if r.tableRow > 1 {
			r.buf.WriteString("</tbody>")
		}
		r.buf.WriteString("</table>\n")
		r.tableRow = 0
	case blockCode:
		r.buf.WriteString("</code></pre>\n")
	}
	r.open = blockNone
}

func (r *renderer) heading(level int, text string) {
	inline := FormatInline(text)
	plain := html.UnescapeString(reTag.ReplaceAllString(inline, ""))
	id := r.uniqueID(Anchor(plain))
	r.toc = append(r.toc, Heading{Level: level, ID: id, Text: plain})
	n := strconv.Itoa(level)
	r.buf.WriteString(`<h` + n + ` id="` + id + `">` + inline + `</h` + n + ">\n")
}

// uniqueID suffixes repeated anchors with -1, -2, ...
func (r *renderer) uniqueID(id string) string {
	if id == "" {
		id = "section"
	}
	seen := r.ids[id]
	r.ids[id] = seen + 1
	if seen == 0 {
		return id
	}
	return id + "-" + strconv.Itoa(seen)
}

func (r *renderer) tableLine(line string) {
	if r.open != blockTable {
		r.close()
		r.open = blockTable
		r.buf.WriteString("<table><thead><tr>")
		for _, cell := range tableCells(line) {
			r.buf.WriteString("<th>" + FormatInline(cell) + "</th>")
		}
		r.buf.WriteString("</tr></thead>")
		r.tableRow = 1
		return
	}
	if isTableSeparator(line) {
		return
	}
	if r.tableRow == 1 {
		r.buf.WriteString("<tbody>")
	}
	r.tableRow++
	r.buf.WriteString("<tr>")
	for _, cell := range tableCells(line) {
		r.buf.WriteString("<td>" + FormatInline(cell) + "</td>")
	}
	r.buf.WriteString("</tr>")
}

func tableCells(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	for _, cell := range tableCells(line) {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}
	return true
}

// Anchor turns heading text into an id attribute value.
func Anchor(text string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return html.EscapeString(strings.TrimRight(b.String(), "-"))
}

// FormatInline escapes s and applies images, links, inline code, bold and italics.
func FormatInline(s string) string {
	out := html.EscapeString(placeholderMarks.Replace(s))

	// Images become placeholders before the link pass so a link written in
	// alt text never lands inside the alt attribute.
	var imgs []string
	out = reImg.ReplaceAllStringFunc(out, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		imgs = append(imgs, `<img src="`+src+`" alt="`+match[1]+`" loading="lazy" decoding="async"/>`)
		return "\x01" + strconv.Itoa(len(imgs)-1) + "\x01"
	})
	out = reLink.ReplaceAllStringFunc(out, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := ""
		if match[3] == "^" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>` + match[1] + `</a>`
	})

	// Inline code is swapped for placeholders so emphasis never reaches it.
	var codes []string
	out = reInlineCode.ReplaceAllStringFunc(out, func(m string) string {
		codes = append(codes, "<code>"+reInlineCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00" + strconv.Itoa(len(codes)-1) + "\x00"
	})
	out = outsideTags(out, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		return reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
	})
	for i, code := range codes {
		out = strings.Replace(out, "\x00"+strconv.Itoa(i)+"\x00", code, 1)
	}
	for i, img := range imgs {
		out = strings.Replace(out, "\x01"+strconv.Itoa(i)+"\x01", img, 1)
	}
	return out
}

// outsideTags applies fn to the text between HTML tags only, leaving
// attribute values such as hrefs untouched.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for s != "" {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an attribute, or "" when its scheme is not
// http, https, mailto or tel. Relative and fragment URLs are allowed.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "#") || isPathRelative(val) {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	}
	return ""
}

// isPathRelative reports whether val is a same-origin path. "//host" and
// "/\host" are treated by browsers as protocol-relative, so they are not.
func isPathRelative(val string) bool {
	return strings.HasPrefix(val, "/") && !strings.HasPrefix(val, "//") && !strings.HasPrefix(val, `/\`)
}

// StripTags removes HTML tags from s, unescapes entities and collapses whitespace.
func StripTags(s string) string {
	s = reBlockEnd.ReplaceAllString(s, " ")
	s = html.UnescapeString(reTag.ReplaceAllString(s, ""))
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// Excerpt returns the first n characters of md rendered as plain text.
func Excerpt(md string, n int) string {
	text := []rune(StripTags(Render(md).HTML))
	if len(text) <= n {
		return string(text)
	}
	return strings.TrimSpace(string(text[:n]))
}
