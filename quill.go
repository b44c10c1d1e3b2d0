// Package quill is a personal blog engine built with Go, Echo, and templ.
// Posts are grouped by category and tags, listed on paginated index, category,
// tag and monthly archive pages, and open for reader comments.
//
// Users provide templ components via the ViewFuncs struct (the views package
// has defaults), and quill handles the handler logic, middleware, and
// database operations.
package quill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eringen/quill/logger"
)

// ViewFuncs holds the templ components the framework calls when rendering
// pages. Users own and customize all templates through it.
type ViewFuncs struct {
	Listing     func(page ListingPage) templ.Component
	Post        func(page PostPage) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central quill application. It wires together the store,
// cache, handlers, middleware, and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *SidebarCache
	Views  ViewFuncs
	Log    zerolog.Logger

	limiter      *CommentLimiter
	customRoutes []func(*App)
	customLogger bool
	ready        bool
}

// New creates a new quill App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
		Log:    zerolog.Nop(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init validates the configuration, opens the store, and registers
// middleware and routes. Start calls it when needed.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("quill: %w", err)
	}
	if a.Views.Listing == nil || a.Views.Post == nil || a.Views.NotFound == nil || a.Views.ServerError == nil {
		return errors.New("quill: every ViewFuncs component is required")
	}
	if !a.customLogger {
		log, err := logger.New(a.Config.Log)
		if err != nil {
			return fmt.Errorf("quill: %w", err)
		}
		a.Log = log
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("quill: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewSidebarCache(a.Store, a.Config.CacheTTL, a.Config.RecentPosts)
	a.limiter = NewCommentLimiter(a.Config.CommentLimit, a.Config.CommentWindow)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and serves until the server fails.
func (a *App) Start() error {
	return a.Run(context.Background())
}

// Run initializes the app and serves until ctx is done, then shuts the
// server down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Init(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", a.Config.Addr).Msg("listening")
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Log.Info().Msg("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework stylesheet; everything else under /public/ comes from StaticDir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/public/quill.css", echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS)))))
	e.Static("/public", a.Config.StaticDir)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleIndex)
	e.GET("/posts/:slug/", a.handlePost)
	e.POST("/posts/:slug/comments/", a.handleComment)
	e.GET("/category/:id/", a.handleCategory)
	e.GET("/tag/:id/", a.handleTag)
	e.GET("/archives/:year/:month/", a.handleArchive)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
