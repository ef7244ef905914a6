package mapview

import (
	"image"

	"gioui.org/op/paint"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ImageOpCache keeps the GPU upload handle for each decoded tile so an image
// is converted once rather than on every frame. Images are keyed by
// identity; tiles evicted from the tile cache age out here too.
type ImageOpCache struct {
	cache *lru.Cache[image.Image, paint.ImageOp]
	size  int
}

func NewImageOpCache(size int) *ImageOpCache {
	if size < 1 {
		size = 1
	}
	c, _ := lru.New[image.Image, paint.ImageOp](size)
	return &ImageOpCache{cache: c, size: size}
}

func (c *ImageOpCache) Get(img image.Image) paint.ImageOp {
	if op, ok := c.cache.Get(img); ok {
		return op
	}
	op := paint.NewImageOp(img)
	c.cache.Add(img, op)
	return op
}

func (c *ImageOpCache) Clear() {
	c.cache.Purge()
}

func (c *ImageOpCache) Len() int {
	return c.cache.Len()
}

// Size is the maximum number of ops kept.
func (c *ImageOpCache) Size() int {
	return c.size
}
