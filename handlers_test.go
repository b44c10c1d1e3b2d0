package quill_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/quill"
	"github.com/eringen/quill/views"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

func newTestApp(t *testing.T, mutate ...func(*quill.SiteConfig)) *quill.App {
	t.Helper()
	dir := t.TempDir()
	cfg := quill.SiteConfig{
		Name:         "Test Blog",
		URL:          "https://blog.example.com",
		DatabasePath: filepath.Join(dir, "blog.db"),
		StaticDir:    filepath.Join(dir, "public"),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	app := quill.New(cfg, views.New(cfg), quill.WithLogger(zerolog.Nop()))
	require.NoError(t, app.Init())
	t.Cleanup(func() { app.Close() })
	return app
}

// seed stores n posts "Post 01".."Post n", one day apart from 2024-01-01,
// alternating between the Go and Art categories.
func seed(t *testing.T, app *quill.App, n int) []quill.Post {
	t.Helper()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	posts := make([]quill.Post, 0, n)
	for i := 1; i <= n; i++ {
		cat := "Go"
		if i%2 == 0 {
			cat = "Art"
		}
		p := quill.Post{
			Title:     fmt.Sprintf("Post %02d", i),
			Body:      "## Intro\n\nText.\n\n## Details\n\nMore text.",
			Category:  quill.Category{Name: cat},
			Tags:      []quill.Tag{{Name: "common"}},
			CreatedAt: start.AddDate(0, 0, i-1),
		}
		require.NoError(t, app.Store.SavePost(&p))
		posts = append(posts, p)
	}
	app.Cache.Invalidate()
	return posts
}

func get(t *testing.T, app *quill.App, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("User-Agent", browserUA)
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func summaries(body string) int {
	return strings.Count(body, `class="post-summary"`)
}

func summaryOf(slug string) string {
	return `<article class="post-summary"><h2><a href="/posts/` + slug + `/">`
}

func currentPage(n int) string {
	return fmt.Sprintf(`<span class="current" aria-current="page">%d</span>`, n)
}

func TestIndexPagination(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 12)

	tests := []struct {
		query   string
		page    int
		count   int
		newest  string
		missing string
	}{
		{query: "", page: 1, count: 5, newest: "post-12", missing: "post-07"},
		{query: "?page=2", page: 2, count: 5, newest: "post-07", missing: "post-12"},
		{query: "?page=last", page: 3, count: 2, newest: "post-02"},
		{query: "?page=99", page: 3, count: 2, newest: "post-02"},
		{query: "?page=0", page: 1, count: 5, newest: "post-12"},
		{query: "?page=abc", page: 1, count: 5, newest: "post-12"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, app, "/"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Equal(t, tt.count, summaries(body))
			assert.Contains(t, body, summaryOf(tt.newest))
			if tt.missing != "" {
				assert.NotContains(t, body, summaryOf(tt.missing))
			}
			assert.Contains(t, body, currentPage(tt.page))
		})
	}
}

func TestPagerLinks(t *testing.T) {
	app := newTestApp(t, func(c *quill.SiteConfig) { c.PageSize = 1 })
	seed(t, app, 9)

	body := get(t, app, "/?page=5").Body.String()
	assert.Contains(t, body, `<a href="/" class="first">1</a>`)
	assert.Contains(t, body, `<a href="/?page=3">3</a>`)
	assert.Contains(t, body, `<a href="/?page=7">7</a>`)
	assert.Contains(t, body, `<a href="/?page=9" class="last">9</a>`)
	assert.Equal(t, 2, strings.Count(body, `class="ellipsis"`))
	assert.NotContains(t, body, `<a href="/?page=8">`)

	body = get(t, app, "/?page=6").Body.String()
	assert.Contains(t, body, `<a href="/?page=9" class="last">9</a>`)
	assert.Equal(t, 1, strings.Count(body, `class="ellipsis"`), "no right ellipsis one page short of the end")

	body = get(t, app, "/?page=7").Body.String()
	assert.NotContains(t, body, `class="last"`)
	assert.Contains(t, body, `<a href="/?page=9">9</a>`)
}

func TestSinglePageHasNoPager(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 2)
	body := get(t, app, "/").Body.String()
	assert.NotContains(t, body, `class="pager"`)

	empty := newTestApp(t)
	rec := get(t, empty, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No posts yet.")
}

func TestCategoryTagAndArchiveListings(t *testing.T) {
	app := newTestApp(t, func(c *quill.SiteConfig) { c.PageSize = 2 })
	posts := seed(t, app, 6)
	art := posts[1].Category
	common := posts[0].Tags[0]

	rec := get(t, app, quill.CategoryLink(art))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Category: Art")
	assert.Contains(t, body, summaryOf("post-06"))
	assert.Contains(t, body, summaryOf("post-04"))
	assert.NotContains(t, body, summaryOf("post-05"))
	assert.Contains(t, body, `<a href="/category/`+fmt.Sprint(art.ID)+`/?page=2">2</a>`)

	body = get(t, app, quill.TagLink(common)+"?page=3").Body.String()
	assert.Contains(t, body, "Tag: common")
	assert.Contains(t, body, summaryOf("post-02"))
	assert.Contains(t, body, currentPage(3))

	body = get(t, app, "/archives/2024/1/").Body.String()
	assert.Contains(t, body, "Archives: January 2024")
	assert.Equal(t, 2, summaries(body))

	for _, target := range []string{"/category/999/", "/tag/abc/", "/archives/2024/13/", "/archives/x/1/"} {
		assert.Equal(t, http.StatusNotFound, get(t, app, target).Code, target)
	}
}

func TestPostDetail(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 1)

	rec := get(t, app, "/posts/post-01/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Post 01</h1>")
	assert.Contains(t, body, `<nav class="toc">`)
	assert.Contains(t, body, `<a href="#intro">Intro</a>`)
	assert.Contains(t, body, `<h2 id="details">Details</h2>`)
	assert.Contains(t, body, "1 view")
	assert.Contains(t, body, `name="_csrf"`)

	get(t, app, "/posts/post-01/")
	p, err := app.Store.GetPost("post-01")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Views)

	bot := httptest.NewRequest(http.MethodGet, "/posts/post-01/", nil)
	bot.Header.Set("User-Agent", "Googlebot/2.1")
	app.Echo.ServeHTTP(httptest.NewRecorder(), bot)
	p, err = app.Store.GetPost("post-01")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Views, "bots are not counted")
}

func TestNotFoundAndRedirects(t *testing.T) {
	app := newTestApp(t)

	rec := get(t, app, "/posts/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")

	rec = get(t, app, "/no/such/route/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")

	rec = get(t, app, "/posts/missing")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/posts/missing/", rec.Header().Get("Location"))
}

// csrfCookie fetches a page and returns the CSRF cookie it sets.
func csrfCookie(t *testing.T, app *quill.App, target string) *http.Cookie {
	t.Helper()
	rec := get(t, app, target)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_csrf" {
			return c
		}
	}
	t.Fatalf("no _csrf cookie on %s", target)
	return nil
}

func postComment(app *quill.App, slug string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	if cookie != nil {
		form.Set("_csrf", cookie.Value)
	}
	req := httptest.NewRequest(http.MethodPost, "/posts/"+slug+"/comments/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", browserUA)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func TestCommentFlow(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 1)
	cookie := csrfCookie(t, app, "/posts/post-01/")

	rec := postComment(app, "post-01", cookie, url.Values{
		"name":  {"Ann"},
		"email": {"ann@example.com"},
		"url":   {"https://ann.example"},
		"text":  {"Great post.\n\nSecond <b>paragraph</b>."},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/post-01/#comments", rec.Header().Get("Location"))

	body := get(t, app, "/posts/post-01/").Body.String()
	assert.Contains(t, body, "1 comment")
	assert.Contains(t, body, `<a rel="nofollow ugc" href="https://ann.example">Ann</a>`)
	assert.Contains(t, body, "<p>Second &lt;b&gt;paragraph&lt;/b&gt;.</p>")
	assert.NotContains(t, body, "ann@example.com", "emails are not published")
}

func TestCommentValidationErrors(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 1)
	cookie := csrfCookie(t, app, "/posts/post-01/")

	rec := postComment(app, "post-01", cookie, url.Values{
		"name":  {"Ann"},
		"email": {"nope"},
		"text":  {"kept text"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "kept text")

	p, err := app.Store.GetPost("post-01")
	require.NoError(t, err)
	comments, err := app.Store.ListComments(p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentRequiresCSRFToken(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 1)
	rec := postComment(app, "post-01", nil, url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "text": {"hi"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCommentRateLimit(t *testing.T) {
	app := newTestApp(t, func(c *quill.SiteConfig) {
		c.CommentLimit = 1
		c.CommentWindow = time.Hour
	})
	seed(t, app, 1)
	cookie := csrfCookie(t, app, "/posts/post-01/")
	form := func() url.Values {
		return url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "text": {"hi"}}
	}

	assert.Equal(t, http.StatusSeeOther, postComment(app, "post-01", cookie, form()).Code)
	assert.Equal(t, http.StatusTooManyRequests, postComment(app, "post-01", cookie, form()).Code)
}

func TestCommentRateLimitCountsOnlyAcceptedComments(t *testing.T) {
	app := newTestApp(t, func(c *quill.SiteConfig) {
		c.CommentLimit = 1
		c.CommentWindow = time.Hour
	})
	seed(t, app, 1)
	cookie := csrfCookie(t, app, "/posts/post-01/")
	invalid := url.Values{"name": {"Ann"}, "email": {"nope"}, "text": {"hi"}}
	valid := func() url.Values {
		return url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "text": {"hi"}}
	}

	assert.Equal(t, http.StatusUnprocessableEntity, postComment(app, "post-01", cookie, invalid).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, postComment(app, "post-01", cookie, invalid).Code)
	assert.Equal(t, http.StatusSeeOther, postComment(app, "post-01", cookie, valid()).Code)
	assert.Equal(t, http.StatusTooManyRequests, postComment(app, "post-01", cookie, valid()).Code)
}

func TestSidebarRecentPosts(t *testing.T) {
	tests := []struct {
		name   string
		recent int
		shown  bool
	}{
		{"default", 0, true},
		{"disabled", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(c *quill.SiteConfig) { c.RecentPosts = tt.recent })
			seed(t, app, 2)
			body := get(t, app, "/").Body.String()
			if tt.shown {
				assert.Contains(t, body, "Recent posts")
			} else {
				assert.NotContains(t, body, "Recent posts")
			}
		})
	}
}

func TestFailingViewServesErrorPage(t *testing.T) {
	dir := t.TempDir()
	cfg := quill.SiteConfig{
		URL:          "https://blog.example.com",
		DatabasePath: filepath.Join(dir, "blog.db"),
		StaticDir:    filepath.Join(dir, "public"),
	}
	v := views.New(cfg)
	v.Listing = func(quill.ListingPage) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, _ = io.WriteString(w, "<main>partial listing")
			return errors.New("template failed")
		})
	}
	app := quill.New(cfg, v, quill.WithLogger(zerolog.Nop()))
	require.NoError(t, app.Init())
	t.Cleanup(func() { app.Close() })

	rec := get(t, app, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.NotContains(t, rec.Body.String(), "partial listing")
}

func TestFeedAndSitemap(t *testing.T) {
	app := newTestApp(t)
	seed(t, app, 25)

	rec := get(t, app, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 20, strings.Count(body, "<item>"))
	assert.Contains(t, body, "<link>https://blog.example.com/posts/post-25/</link>")
	assert.NotContains(t, body, "post-05/")
	assert.Contains(t, body, "<category>Go</category>")

	rec = get(t, app, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Equal(t, 26, strings.Count(body, "<url>"))
	assert.Contains(t, body, "<loc>https://blog.example.com/posts/post-01/</loc>")
}

func TestEmbeddedStylesheet(t *testing.T) {
	app := newTestApp(t)
	rec := get(t, app, "/public/quill.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".pager")
}

func TestInitRejectsMissingViews(t *testing.T) {
	cfg := quill.SiteConfig{DatabasePath: filepath.Join(t.TempDir(), "blog.db")}
	app := quill.New(cfg, quill.ViewFuncs{}, quill.WithLogger(zerolog.Nop()))
	assert.Error(t, app.Init())
}
