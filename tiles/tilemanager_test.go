package tiles

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/placemap/metrics"
)

func pngTile(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// tileServer serves a PNG for every path except those listed in missing.
func tileServer(t *testing.T, missing ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := pngTile(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		for _, m := range missing {
			if r.URL.Path == m {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func waitLoaded(t *testing.T, tm *TileManager, key TileKey) image.Image {
	t.Helper()
	var img image.Image
	require.Eventually(t, func() bool {
		var ok bool
		img, ok = tm.GetTile(key)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return img
}

func TestHTTPTileProviderURL(t *testing.T) {
	p := NewHTTPTileProvider("https://tiles.example.com/", "", nil)
	assert.Equal(t, "https://tiles.example.com/13/4096/2048.png", p.GetTileURL(TileKey{13, 4096, 2048}))
}

func TestHTTPTileProviderStatus(t *testing.T) {
	srv, _ := tileServer(t, "/13/4096/2048.png")
	p := NewHTTPTileProvider(srv.URL, "placemap-test", srv.Client())

	_, err := p.GetTile(context.Background(), TileKey{13, 4096, 2048})
	require.ErrorIs(t, err, ErrTileStatus)

	img, err := p.GetTile(context.Background(), TileKey{13, 4096, 2047})
	require.NoError(t, err)
	assert.Equal(t, TileSize, img.Bounds().Dx())

	_, err = p.GetTile(context.Background(), TileKey{1, 2, 0})
	require.ErrorIs(t, err, ErrInvalidTile)
}

func TestTileManagerMissThenHit(t *testing.T) {
	srv, hits := tileServer(t)
	tm := NewTileManager(NewHTTPTileProvider(srv.URL, "", srv.Client()), Options{Workers: 2})
	defer tm.Close()

	var loads atomic.Int32
	tm.SetOnLoadCallback(func() { loads.Add(1) })

	key := TileKey{5, 10, 12}
	img, ok := tm.GetTile(key)
	assert.False(t, ok)
	assert.Nil(t, img)

	img = waitLoaded(t, tm, key)
	assert.NotNil(t, img)
	require.Eventually(t, func() bool { return loads.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), hits.Load())
	assert.Zero(t, tm.Pending())
}

func TestTileManagerDeduplicatesInflight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	provider := providerFunc(func(ctx context.Context, key TileKey) (image.Image, error) {
		calls.Add(1)
		<-release
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	tm := NewTileManager(provider, Options{Workers: 4})
	defer tm.Close()

	key := TileKey{3, 1, 1}
	for i := 0; i < 10; i++ {
		tm.GetTile(key)
	}
	assert.Equal(t, 1, tm.Pending())
	close(release)
	waitLoaded(t, tm, key)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTileManagerFailureLeavesNoEntry(t *testing.T) {
	srv, hits := tileServer(t, "/13/4096/2048.png")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tm := NewTileManager(NewHTTPTileProvider(srv.URL, "", srv.Client()), Options{Metrics: m})
	defer tm.Close()

	key := TileKey{13, 4096, 2048}
	_, ok := tm.GetTile(key)
	require.False(t, ok)
	require.Eventually(t, func() bool { return tm.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)

	_, ok = tm.GetTile(key)
	assert.False(t, ok)
	assert.False(t, tm.Cached(key))
	assert.Equal(t, 0, tm.Pending(), "failed tiles are not retried")
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TileFetches.WithLabelValues("error")))

	// a zoom change forgets the failure
	tm.Clear()
	tm.GetTile(key)
	require.Eventually(t, func() bool { return hits.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestTileManagerRetainDiscardsStaleCompletion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := providerFunc(func(ctx context.Context, key TileKey) (image.Image, error) {
		close(started)
		<-release
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	tm := NewTileManager(provider, Options{Workers: 1})
	defer tm.Close()

	stale := TileKey{4, 2, 2}
	tm.GetTile(stale)
	<-started

	tm.Retain([]TileKey{{4, 3, 3}})
	assert.Zero(t, tm.Pending())
	close(release)

	assert.Never(t, func() bool { return tm.Cached(stale) }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTileManagerClearCancelsAndEmpties(t *testing.T) {
	var mu sync.Mutex
	var cancelled int
	started := make(chan struct{})
	provider := providerFunc(func(ctx context.Context, key TileKey) (image.Image, error) {
		if key.Zoom == 2 {
			close(started)
			<-ctx.Done()
			mu.Lock()
			cancelled++
			mu.Unlock()
			return nil, ctx.Err()
		}
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	tm := NewTileManager(provider, Options{Workers: 2})
	defer tm.Close()

	loaded := TileKey{1, 0, 0}
	tm.GetTile(loaded)
	waitLoaded(t, tm, loaded)

	tm.GetTile(TileKey{2, 1, 1})
	<-started
	tm.Clear()

	assert.Zero(t, tm.Len())
	assert.Zero(t, tm.Pending())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return cancelled == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTileManagerLRUBound(t *testing.T) {
	tm := NewTileManager(NewLocalTileProvider(), Options{CacheSize: 2, Workers: 1})
	defer tm.Close()

	keys := []TileKey{{3, 0, 0}, {3, 1, 0}, {3, 2, 0}}
	for _, k := range keys {
		tm.GetTile(k)
		waitLoaded(t, tm, k)
	}
	assert.Equal(t, 2, tm.Len())
	assert.False(t, tm.Cached(keys[0]))
}

func TestLocalTileProvider(t *testing.T) {
	img, err := NewLocalTileProvider().GetTile(context.Background(), TileKey{4, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, TileSize, TileSize), img.Bounds())
	assert.Equal(t, placeholderEdge, img.At(0, 0))
	assert.Equal(t, placeholderEdge, img.At(TileSize-1, TileSize/2))
	assert.Equal(t, placeholderLight, img.At(1, 1))

	// odd x+y gets the darker cell
	img, err = NewLocalTileProvider().GetTile(context.Background(), TileKey{4, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, placeholderDark, img.At(1, 1))

	_, err = NewLocalTileProvider().GetTile(context.Background(), TileKey{1, 5, 0})
	assert.ErrorIs(t, err, ErrInvalidTile)
}

type providerFunc func(ctx context.Context, key TileKey) (image.Image, error)

func (f providerFunc) GetTile(ctx context.Context, key TileKey) (image.Image, error) {
	return f(ctx, key)
}
