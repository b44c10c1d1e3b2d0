package quill

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/eringen/quill/logger"
)

// SiteConfig holds all configuration for a quill site.
// Zero values are replaced by the defaults noted on each field.
type SiteConfig struct {
	// Name, URL (canonical, default "http://localhost:3000"), Description
	// and Author feed page titles, RSS, sitemap and JSON-LD.
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url" validate:"url"`
	Description string `mapstructure:"description"`
	Author      string `mapstructure:"author"`

	Addr         string `mapstructure:"addr"`          // default ":3000"
	DatabasePath string `mapstructure:"database_path"` // default "data/blog.db"
	StaticDir    string `mapstructure:"static_dir"`    // default "public"

	// PageSize is the number of posts per listing page (default 5).
	PageSize    int           `mapstructure:"page_size" validate:"min=1,max=100"`
	// RecentPosts is the sidebar's recent list length; 0 means 5, -1 hides it.
	RecentPosts int           `mapstructure:"recent_posts" validate:"min=-1,max=50"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`

	CookieSecure bool `mapstructure:"cookie_secure"`

	// CommentLimit comments are accepted per IP per CommentWindow.
	CommentLimit  int           `mapstructure:"comment_limit" validate:"min=1"`
	CommentWindow time.Duration `mapstructure:"comment_window"`

	Log logger.Config `mapstructure:"log" validate:"-"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.PageSize == 0 {
		c.PageSize = 5
	}
	if c.RecentPosts == 0 {
		c.RecentPosts = 5
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CommentLimit == 0 {
		c.CommentLimit = 5
	}
	if c.CommentWindow == 0 {
		c.CommentWindow = time.Minute
	}
}

// Validate applies defaults and checks field constraints.
func (c *SiteConfig) Validate() error {
	c.setDefaults()
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("site config: %w", err)
	}
	return nil
}

// LoadConfig reads configuration from path (optional, any format viper
// understands) and QUILL_* environment variables, after loading .env into
// the process environment when present. Nested keys use underscores, so
// log.level is QUILL_LOG_LEVEL.
func LoadConfig(path string) (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only affects keys viper already knows about.
	for _, key := range []string{
		"name", "url", "description", "author", "addr", "database_path", "static_dir",
		"page_size", "recent_posts", "cache_ttl", "cookie_secure",
		"comment_limit", "comment_window",
		"log.level", "log.format", "log.env", "log.time_format", "log.service", "log.version", "log.with_caller",
	} {
		if err := v.BindEnv(key); err != nil {
			return SiteConfig{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the logger built from SiteConfig.Log.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.Log = log
		a.customLogger = true
	}
}
