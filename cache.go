package quill

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SidebarCache is an in-memory cache of the sidebar navigation with TTL.
// Concurrent misses share a single reload.
type SidebarCache struct {
	mu      sync.RWMutex
	sidebar Sidebar
	loaded  bool
	fetched time.Time
	ttl     time.Duration
	recent  int
	store   *Store
	group   singleflight.Group
	now     func() time.Time
}

// NewSidebarCache creates a SidebarCache backed by the given Store that keeps
// the recent newest posts.
func NewSidebarCache(s *Store, ttl time.Duration, recent int) *SidebarCache {
	return &SidebarCache{store: s, ttl: ttl, recent: recent, now: time.Now}
}

func (c *SidebarCache) valid() bool {
	return c.loaded && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *SidebarCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.sidebar = Sidebar{}
	c.mu.Unlock()
}

// Get returns the cached sidebar, reloading it from the store when stale.
func (c *SidebarCache) Get() (Sidebar, error) {
	c.mu.RLock()
	if c.valid() {
		sb := c.sidebar
		c.mu.RUnlock()
		return sb, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("sidebar", func() (interface{}, error) {
		sb, err := c.load()
		if err != nil {
			return Sidebar{}, err
		}
		c.mu.Lock()
		c.sidebar = sb
		c.loaded = true
		c.fetched = c.now()
		c.mu.Unlock()
		return sb, nil
	})
	if err != nil {
		return Sidebar{}, err
	}
	return v.(Sidebar), nil
}

func (c *SidebarCache) load() (Sidebar, error) {
	var sb Sidebar
	var err error
	if c.recent > 0 {
		if sb.Recent, err = c.store.RecentPosts(c.recent); err != nil {
			return Sidebar{}, err
		}
	}
	if sb.Archives, err = c.store.Archives(); err != nil {
		return Sidebar{}, err
	}
	if sb.Categories, err = c.store.Categories(); err != nil {
		return Sidebar{}, err
	}
	if sb.Tags, err = c.store.Tags(); err != nil {
		return Sidebar{}, err
	}
	return sb, nil
}
