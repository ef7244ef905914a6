package poi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/metrics"
)

const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// ErrUpstream wraps non-200 answers from the Overpass endpoint.
var ErrUpstream = errors.New("overpass request failed")

// Source returns the POIs inside a viewport.
type Source interface {
	FetchPOIs(ctx context.Context, bounds orb.Bound) ([]markers.POI, error)
}

type ClientConfig struct {
	URL           string
	UserAgent     string
	Categories    []string
	CacheTTL      time.Duration
	CacheSize     int
	RatePerSecond float64
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
}

// Client queries Overpass through a result cache, a rate limiter and a
// circuit breaker.
type Client struct {
	url        string
	userAgent  string
	categories []string
	http       *http.Client
	cache      *expirable.LRU[string, []markers.POI]
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]markers.POI]
	metrics    *metrics.Metrics
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultOverpassURL
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	cb := gobreaker.NewCircuitBreaker[[]markers.POI](gobreaker.Settings{
		Name:        "overpass",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// superseded queries are cancelled by the loader; they say nothing
		// about the health of the endpoint
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Client{
		url:        cfg.URL,
		userAgent:  cfg.UserAgent,
		categories: cfg.Categories,
		http:       cfg.HTTPClient,
		cache:      expirable.NewLRU[string, []markers.POI](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter:    rate.NewLimiter(limit, 1),
		cb:         cb,
		metrics:    cfg.Metrics,
	}
}

// FetchPOIs returns the POIs within bounds. Results are cached per bounds
// for the configured TTL.
func (c *Client) FetchPOIs(ctx context.Context, bounds orb.Bound) ([]markers.POI, error) {
	key := cacheKey(bounds, c.categories)
	if pois, ok := c.cache.Get(key); ok {
		c.metrics.POIQuery("cached")
		return pois, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pois, err := c.cb.Execute(func() ([]markers.POI, error) {
		return c.query(ctx, BuildQuery(bounds, c.categories))
	})
	if err != nil {
		c.metrics.POIQuery("error")
		return nil, err
	}

	c.cache.Add(key, pois)
	c.metrics.POIQuery("ok")
	return pois, nil
}

func (c *Client) query(ctx context.Context, q string) ([]markers.POI, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(q))
	if err != nil {
		return nil, fmt.Errorf("creating overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return decode(resp.Body)
}
