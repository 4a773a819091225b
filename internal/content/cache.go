package content

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// Cache stores raw API responses on disk so reruns skip the network.
// Keys map to deterministic file names under the cache directory.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed and returns a Cache.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "content: create cache dir %s", dir)
	}
	return &Cache{dir: dir}, nil
}

// Get returns the cached payload for key, or (nil, false) on a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	zap.L().Debug("content: cache hit", zap.String("key", key))
	return data, true
}

// Put writes the payload for key. Failures are returned but callers treat
// them as non-fatal: a broken cache only costs a refetch.
func (c *Cache) Put(key string, data []byte) error {
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return eris.Wrapf(err, "content: write cache %s", key)
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// listPageKey is the cache key for one page of the list endpoint.
func listPageKey(blogID string, offset int) string {
	return fmt.Sprintf("list-%s-%d", model.Slugify(blogID), offset)
}

// detailKey is the cache key for a per-slug detail response.
func detailKey(slug string) string {
	return "detail-" + model.Slugify(slug)
}
