package provider

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

func init() {
	// go-cache persists items as interface values.
	gob.Register([]ShowSummary{})
	gob.Register(&ShowDetails{})
	gob.Register(&SeasonDetails{})
}

// Cached wraps a CatalogAPI with an in-memory response cache that can be
// persisted between runs. Errors are never cached; empty search results are.
type Cached struct {
	api   CatalogAPI
	cache *cache.Cache
	file  string
}

// NewCached wraps api with a cache whose entries expire after ttl.
func NewCached(api CatalogAPI, ttl time.Duration) *Cached {
	return NewCachedWithStore(api, cache.New(ttl, 10*time.Minute))
}

// NewCachedWithStore wraps api with an existing cache so several worker
// handles can share one store.
func NewCachedWithStore(api CatalogAPI, store *cache.Cache) *Cached {
	return &Cached{api: api, cache: store}
}

// CacheFile returns the default persistence path for a backend's cache.
func CacheFile(backend string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".catalog-tidy", "cache", backend+".gob"), nil
}

// Load reads a previously saved cache file. A missing file is not an error.
func (c *Cached) Load(path string) error {
	c.file = path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := c.cache.LoadFile(path); err != nil {
		return fmt.Errorf("failed to load cache %s: %w", path, err)
	}
	return nil
}

// Save persists the cache to the file given to Load.
func (c *Cached) Save() error {
	if c.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.file), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := c.cache.SaveFile(c.file); err != nil {
		return fmt.Errorf("failed to save cache %s: %w", c.file, err)
	}
	return nil
}

// Store exposes the underlying cache.
func (c *Cached) Store() *cache.Cache {
	return c.cache
}

// SearchByTitle implements CatalogAPI.
func (c *Cached) SearchByTitle(ctx context.Context, title string) ([]ShowSummary, error) {
	key := GenerateCacheKey("search", title)
	if cached, found := c.cache.Get(key); found {
		if results, ok := cached.([]ShowSummary); ok {
			return results, nil
		}
	}

	results, err := c.api.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []ShowSummary{}
	}
	c.cache.Set(key, results, cache.DefaultExpiration)
	return results, nil
}

// GetShowDetails implements CatalogAPI.
func (c *Cached) GetShowDetails(ctx context.Context, id string) (*ShowDetails, error) {
	key := GenerateCacheKey("show", id)
	if cached, found := c.cache.Get(key); found {
		if details, ok := cached.(*ShowDetails); ok {
			return details, nil
		}
	}

	details, err := c.api.GetShowDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if details != nil {
		c.cache.Set(key, details, cache.DefaultExpiration)
	}
	return details, nil
}

// GetSeasonDetails implements CatalogAPI.
func (c *Cached) GetSeasonDetails(ctx context.Context, showID string, number int) (*SeasonDetails, error) {
	key := GenerateCacheKey("season", showID, fmt.Sprint(number))
	if cached, found := c.cache.Get(key); found {
		if details, ok := cached.(*SeasonDetails); ok {
			return details, nil
		}
	}

	details, err := c.api.GetSeasonDetails(ctx, showID, number)
	if err != nil {
		return nil, err
	}
	if details != nil {
		c.cache.Set(key, details, cache.DefaultExpiration)
	}
	return details, nil
}

// GenerateCacheKey joins a lookup kind and its arguments into a cache key.
func GenerateCacheKey(kind string, parts ...string) string {
	return kind + ":" + strings.Join(parts, ":")
}
