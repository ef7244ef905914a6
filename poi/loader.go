package poi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/markers"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultMinZoom  = 14
	fetchTimeout    = 30 * time.Second
)

// Loader keeps the POI layer in sync with the viewport. Requests are
// debounced so continuous panning issues one query once the view settles;
// a newer request supersedes any query still running.
type Loader struct {
	source   Source
	debounce time.Duration
	minZoom  float64

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
	pois     []markers.POI
	onUpdate func()
}

func NewLoader(source Source, debounce time.Duration, minZoom float64) *Loader {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Loader{source: source, debounce: debounce, minZoom: minZoom}
}

// SetOnUpdate registers a function called whenever the POI set changes.
// It may run on a timer goroutine.
func (l *Loader) SetOnUpdate(fn func()) {
	l.mu.Lock()
	l.onUpdate = fn
	l.mu.Unlock()
}

// MinZoom is the lowest zoom at which the layer is populated.
func (l *Loader) MinZoom() float64 { return l.minZoom }

// Request schedules a query for bounds. Below the minimum zoom the layer is
// emptied immediately instead.
func (l *Loader) Request(bounds orb.Bound, zoom float64) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.stopLocked()

	if zoom < l.minZoom {
		notify := l.setLocked(nil)
		l.mu.Unlock()
		notify()
		return
	}

	l.timer = time.AfterFunc(l.debounce, func() { l.load(gen, bounds) })
	l.mu.Unlock()
}

func (l *Loader) load(gen uint64, bounds orb.Bound) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	pois, err := l.source.FetchPOIs(ctx, bounds)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("poi query failed")
		}
		pois = nil
	}
	notify := l.setLocked(pois)
	l.mu.Unlock()
	notify()
}

// setLocked replaces the POI set and returns the update notification to
// run after unlocking.
func (l *Loader) setLocked(pois []markers.POI) func() {
	if len(pois) == 0 && len(l.pois) == 0 {
		return func() {}
	}
	l.pois = pois
	fn := l.onUpdate
	if fn == nil {
		return func() {}
	}
	return fn
}

func (l *Loader) stopLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// POIs returns the current layer contents.
func (l *Loader) POIs() []markers.POI {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pois
}

// Clear empties the layer and abandons pending or running queries.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.gen++
	l.stopLocked()
	notify := l.setLocked(nil)
	l.mu.Unlock()
	notify()
}
