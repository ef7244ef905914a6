package tiles

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ImageCache is a least-recently-used tile cache holding at most size
// images. It is safe for concurrent use.
type ImageCache struct {
	cache *lru.Cache[TileKey, image.Image]
}

func NewImageCache(size int) *ImageCache {
	if size < 1 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes
	cache, _ := lru.New[TileKey, image.Image](size)
	return &ImageCache{cache: cache}
}

func (c *ImageCache) Get(key TileKey) (image.Image, bool) {
	return c.cache.Get(key)
}

func (c *ImageCache) Set(key TileKey, img image.Image) {
	if img == nil {
		return
	}
	c.cache.Add(key, img)
}

func (c *ImageCache) Clear() {
	c.cache.Purge()
}

func (c *ImageCache) Len() int {
	return c.cache.Len()
}
