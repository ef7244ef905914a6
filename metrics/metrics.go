// Package metrics holds the Prometheus collectors for tile and POI traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TileLookups *prometheus.CounterVec
	TileFetches *prometheus.CounterVec
	TileCached  prometheus.Gauge
	POIQueries  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TileLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placemap",
			Name:      "tile_lookups_total",
			Help:      "Tile cache lookups by result (hit, miss).",
		}, []string{"result"}),
		TileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placemap",
			Name:      "tile_fetches_total",
			Help:      "Completed tile fetches by outcome (ok, error, cancelled).",
		}, []string{"outcome"}),
		TileCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "placemap",
			Name:      "tiles_cached",
			Help:      "Number of decoded tiles held in the cache.",
		}),
		POIQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placemap",
			Name:      "poi_queries_total",
			Help:      "Point-of-interest queries by outcome (ok, cached, error).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.TileLookups, m.TileFetches, m.TileCached, m.POIQueries)
	}
	return m
}

func (m *Metrics) TileLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.TileLookups.WithLabelValues("hit").Inc()
	} else {
		m.TileLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) TileFetch(outcome string) {
	if m == nil {
		return
	}
	m.TileFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetTilesCached(n int) {
	if m == nil {
		return
	}
	m.TileCached.Set(float64(n))
}

func (m *Metrics) POIQuery(outcome string) {
	if m == nil {
		return
	}
	m.POIQueries.WithLabelValues(outcome).Inc()
}

// Handler serves the collectors registered on g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
