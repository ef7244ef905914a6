package tiles

import "image"

// DefaultCacheSize bounds the number of decoded tiles kept per map.
const DefaultCacheSize = 512

// Cache stores decoded tiles by key.
type Cache interface {
	Get(key TileKey) (image.Image, bool)
	Set(key TileKey, img image.Image)
	Clear()
	Len() int
}
