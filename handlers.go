package quill

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/markdown"
	"github.com/eringen/quill/pagination"
)

const feedSize = 20

// renderListing renders one page of the posts matching f. base is the
// listing path used by the pager links.
func (a *App) renderListing(c echo.Context, f PostFilter, base, title, heading string) error {
	total, err := a.Store.CountPosts(f)
	if err != nil {
		return err
	}
	p, err := pagination.New(total, a.Config.PageSize)
	if err != nil {
		return err
	}
	page := requestedPage(c.QueryParam("page"), p)
	pager, err := newPager(p, page, base)
	if err != nil {
		return err
	}
	posts, err := a.Store.ListPosts(f, p.Limit(), p.Offset(page))
	if err != nil {
		return err
	}
	sidebar, err := a.Cache.Get()
	if err != nil {
		return err
	}
	if page > 1 {
		title = fmt.Sprintf("%s (page %d)", title, page)
	}
	return Render(c, a.Views.Listing(ListingPage{
		Title:   title,
		Heading: heading,
		Posts:   posts,
		Pager:   pager,
		Sidebar: sidebar,
		Config:  a.Config,
	}))
}

func (a *App) handleIndex(c echo.Context) error {
	return a.renderListing(c, PostFilter{}, "/", a.Config.Name, "")
}

func (a *App) handleCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return a.notFound(c)
	}
	cat, err := a.Store.GetCategory(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.notFound(c)
		}
		return err
	}
	return a.renderListing(c, PostFilter{CategoryID: cat.ID}, CategoryLink(cat),
		cat.Name+" | "+a.Config.Name, "Category: "+cat.Name)
}

func (a *App) handleTag(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return a.notFound(c)
	}
	tag, err := a.Store.GetTag(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.notFound(c)
		}
		return err
	}
	return a.renderListing(c, PostFilter{TagID: tag.ID}, TagLink(tag),
		tag.Name+" | "+a.Config.Name, "Tag: "+tag.Name)
}

func (a *App) handleArchive(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 || year > 9999 {
		return a.notFound(c)
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return a.notFound(c)
	}
	label := time.Month(month).String() + " " + strconv.Itoa(year)
	return a.renderListing(c, PostFilter{Year: year, Month: month}, archiveLink(year, month),
		label+" | "+a.Config.Name, "Archives: "+label)
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.notFound(c)
		}
		return err
	}
	if !IsBot(c.Request().UserAgent()) {
		views, err := a.Store.IncreaseViews(post.ID)
		if err != nil {
			return err
		}
		post.Views = views
	}
	return a.renderPost(c, http.StatusOK, post, CommentForm{})
}

func (a *App) renderPost(c echo.Context, code int, post Post, form CommentForm) error {
	comments, err := a.Store.ListComments(post.ID)
	if err != nil {
		return err
	}
	sidebar, err := a.Cache.Get()
	if err != nil {
		return err
	}
	return RenderStatus(c, code, a.Views.Post(PostPage{
		Post:      post,
		Content:   markdown.Render(post.Body),
		Comments:  comments,
		Form:      form,
		CSRFToken: CsrfToken(c),
		Sidebar:   sidebar,
		Config:    a.Config,
	}))
}

func (a *App) handleComment(c echo.Context) error {
	post, err := a.Store.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.notFound(c)
		}
		return err
	}
	ip := c.RealIP()
	if !a.limiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many comments. Try again later.")
	}

	form := CommentForm{
		Name:  c.FormValue("name"),
		Email: c.FormValue("email"),
		URL:   c.FormValue("url"),
		Text:  c.FormValue("text"),
	}
	if !form.Validate() {
		return a.renderPost(c, http.StatusUnprocessableEntity, post, form)
	}
	comment := form.Comment(post.ID)
	if err := a.Store.AddComment(&comment); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	a.limiter.Record(ip)
	a.Log.Info().Str("post", post.Slug).Str("comment", comment.ID).Msg("comment added")
	return c.Redirect(http.StatusSeeOther, post.Link()+"#comments")
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Store.ListPosts(PostFilter{}, -1, 0)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListPosts(PostFilter{}, feedSize, 0)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) notFound(c echo.Context) error {
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.notFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
