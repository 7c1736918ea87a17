package pressroom

import (
	"sync"
	"time"
)

// PostCache is an in-memory cache of published posts and categories with TTL.
type PostCache struct {
	mu         sync.RWMutex
	posts      []BlogPost
	categories []Category
	fetched    time.Time
	ttl        time.Duration
	store      *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListBlogs(true)
	if err != nil {
		return err
	}
	cats, err := c.store.ListCategories()
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	c.posts = posts
	c.categories = cats
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached data, taking the write lock only when a
// reload is needed.
func (c *PostCache) ensureLoaded() ([]BlogPost, []Category, error) {
	c.mu.RLock()
	if c.valid() {
		posts, cats := c.posts, c.categories
		c.mu.RUnlock()
		return posts, cats, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.posts, c.categories, nil
}

// ListPosts returns published posts, optionally filtered by category slug.
func (c *PostCache) ListPosts(categorySlug string) ([]BlogPost, error) {
	posts, cats, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if categorySlug == "" {
		return posts, nil
	}
	var id string
	for _, cat := range cats {
		if cat.Slug == categorySlug {
			id = cat.ID
			break
		}
	}
	if id == "" {
		return nil, nil
	}
	var filtered []BlogPost
	for _, p := range posts {
		if p.CategoryID == id {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Categories returns all categories.
func (c *PostCache) Categories() ([]Category, error) {
	_, cats, err := c.ensureLoaded()
	return cats, err
}

// CategoryName resolves a category id, or "" when unknown.
func (c *PostCache) CategoryName(id string) string {
	cats, err := c.Categories()
	if err != nil {
		return ""
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat.Name
		}
	}
	return ""
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(slug string) (BlogPost, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}
