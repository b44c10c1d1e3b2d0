package quill

import (
	"time"

	"github.com/eringen/quill/markdown"
	"github.com/eringen/quill/pagination"
)

// Category groups posts. Count is filled by listing queries only.
type Category struct {
	ID    int64
	Name  string
	Count int
}

// Tag labels posts. Count is filled by listing queries only.
type Tag struct {
	ID    int64
	Name  string
	Count int
}

// Post is a blog article. Body holds Markdown; Excerpt is plain text.
type Post struct {
	ID         int64
	Slug       string
	Title      string
	Body       string
	Excerpt    string
	Author     string
	Category   Category
	Tags       []Tag
	Views      int
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Link is the site-relative URL of the post detail page.
func (p Post) Link() string {
	return "/posts/" + p.Slug + "/"
}

// Comment is a reader comment on a post.
type Comment struct {
	ID        string
	PostID    int64
	Name      string
	Email     string
	URL       string
	Text      string
	CreatedAt time.Time
}

// ArchiveMonth is a month that has at least one post.
type ArchiveMonth struct {
	Year  int
	Month time.Month
	Count int
}

// Link is the site-relative URL of the month's archive listing.
func (a ArchiveMonth) Link() string {
	return archiveLink(a.Year, int(a.Month))
}

// Sidebar is the navigation shown beside every page.
type Sidebar struct {
	Recent     []Post
	Archives   []ArchiveMonth
	Categories []Category
	Tags       []Tag
}

// Pager drives the page-number widget under a listing.
type Pager struct {
	Show       bool
	Page       int
	TotalPages int
	Prev       int
	Next       int
	HasPrev    bool
	HasNext    bool
	Window     pagination.Window
	base       string
}

// URL returns the listing URL for page.
func (p Pager) URL(page int) string {
	return pageURL(p.base, page)
}

// ListingPage is the data for the index, category, tag and archive pages.
type ListingPage struct {
	Title   string
	Heading string
	Posts   []Post
	Pager   Pager
	Sidebar Sidebar
	Config  SiteConfig
}

// CommentForm carries submitted values and per-field error messages.
type CommentForm struct {
	Name   string
	Email  string
	URL    string
	Text   string
	Errors map[string]string
}

// PostPage is the data for the post detail page.
type PostPage struct {
	Post      Post
	Content   markdown.Document
	Comments  []Comment
	Form      CommentForm
	CSRFToken string
	Sidebar   Sidebar
	Config    SiteConfig
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
