package tiles

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/metrics"
	"github.com/olablt/placemap/tiles/worker"
)

// TileManager serves tiles from its cache and loads misses asynchronously.
// GetTile never blocks on the network: a miss schedules a fetch and the
// onLoad callback fires once the tile is cached.
type TileManager struct {
	cache    Cache
	provider TileProvider
	pool     *worker.Pool
	metrics  *metrics.Metrics

	mu       sync.Mutex
	inflight map[TileKey]*fetch
	failed   map[TileKey]struct{}
	nextID   uint64
	onLoad   func()
}

type fetch struct {
	id     uint64
	cancel context.CancelFunc
}

type Options struct {
	CacheSize int
	Workers   int
	Timeout   time.Duration
	Metrics   *metrics.Metrics
}

func NewTileManager(provider TileProvider, opts Options) *TileManager {
	if opts.Workers < 1 {
		opts.Workers = 6
	}
	return &TileManager{
		cache:    NewImageCache(opts.CacheSize),
		provider: provider,
		pool:     worker.NewPool(opts.Workers, opts.Timeout),
		metrics:  opts.Metrics,
		inflight: make(map[TileKey]*fetch),
		failed:   make(map[TileKey]struct{}),
	}
}

// SetOnLoadCallback registers a function called from a worker goroutine
// after each tile is added to the cache.
func (tm *TileManager) SetOnLoadCallback(callback func()) {
	tm.mu.Lock()
	tm.onLoad = callback
	tm.mu.Unlock()
}

// GetTile returns the cached image for tile. On a miss it starts a fetch
// (unless one is already running or the tile previously failed) and
// returns false.
func (tm *TileManager) GetTile(tile TileKey) (image.Image, bool) {
	if img, ok := tm.cache.Get(tile); ok {
		tm.metrics.TileLookup(true)
		return img, true
	}
	tm.metrics.TileLookup(false)

	if !tile.Valid() {
		return nil, false
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, loading := tm.inflight[tile]; loading {
		return nil, false
	}
	if _, failed := tm.failed[tile]; failed {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	tm.nextID++
	f := &fetch{id: tm.nextID, cancel: cancel}
	tm.inflight[tile] = f

	tm.pool.Submit(worker.Task{
		Ctx: ctx,
		Work: func(ctx context.Context) error {
			return tm.load(ctx, tile, f)
		},
	})
	return nil, false
}

func (tm *TileManager) load(ctx context.Context, tile TileKey, f *fetch) error {
	img, err := tm.provider.GetTile(ctx, tile)

	tm.mu.Lock()
	current, ok := tm.inflight[tile]
	if !ok || current.id != f.id {
		// cancelled by Retain or Clear; a newer fetch may own the key
		tm.mu.Unlock()
		f.cancel()
		tm.metrics.TileFetch("cancelled")
		return context.Canceled
	}
	delete(tm.inflight, tile)
	f.cancel()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			tm.failed[tile] = struct{}{}
		}
		tm.mu.Unlock()
		tm.metrics.TileFetch("error")
		logging.Debug().Err(err).Str("tile", tile.String()).Msg("tile fetch failed")
		return err
	}

	tm.cache.Set(tile, img)
	onLoad := tm.onLoad
	tm.mu.Unlock()

	tm.metrics.TileFetch("ok")
	tm.metrics.SetTilesCached(tm.cache.Len())
	if onLoad != nil {
		onLoad()
	}
	return nil
}

// Retain cancels in-flight fetches for tiles not in visible. Cancelled
// completions are discarded.
func (tm *TileManager) Retain(visible []TileKey) {
	keep := make(map[TileKey]struct{}, len(visible))
	for _, k := range visible {
		keep[k] = struct{}{}
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	for key, f := range tm.inflight {
		if _, ok := keep[key]; ok {
			continue
		}
		f.cancel()
		delete(tm.inflight, key)
	}
}

// Clear drops every cached tile, cancels all in-flight fetches and forgets
// previous failures.
func (tm *TileManager) Clear() {
	tm.mu.Lock()
	for key, f := range tm.inflight {
		f.cancel()
		delete(tm.inflight, key)
	}
	tm.failed = make(map[TileKey]struct{})
	tm.cache.Clear()
	tm.mu.Unlock()
	tm.metrics.SetTilesCached(0)
}

// Pending is the number of fetches currently in flight.
func (tm *TileManager) Pending() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.inflight)
}

// Cached reports whether tile is in the cache.
func (tm *TileManager) Cached(tile TileKey) bool {
	_, ok := tm.cache.Get(tile)
	return ok
}

func (tm *TileManager) Len() int {
	return tm.cache.Len()
}

// Close cancels outstanding fetches and stops the worker pool.
func (tm *TileManager) Close() {
	tm.mu.Lock()
	for key, f := range tm.inflight {
		f.cancel()
		delete(tm.inflight, key)
	}
	tm.mu.Unlock()
	tm.pool.Shutdown()
}
