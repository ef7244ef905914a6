package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/olablt/placemap/config"
	"github.com/olablt/placemap/gesture"
	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/mapview"
	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/metrics"
	"github.com/olablt/placemap/poi"
	"github.com/olablt/placemap/tiles"
)

func main() {
	configPath := flag.String("config", "", "config file (default: $PLACEMAP_CONFIG or ./placemap.yaml)")
	locations := flag.String("locations", "", "JSON file with saved locations")
	zoom := flag.Float64("zoom", 0, "initial zoom level")
	server := flag.String("tiles", "", `tile server URL, or "local"`)
	user := flag.Float64Slice("user", nil, "user location as lat,lng")
	flag.Parse()

	overrides := map[string]any{}
	if flag.CommandLine.Changed("zoom") {
		overrides["map.zoom"] = *zoom
	}
	if flag.CommandLine.Changed("tiles") {
		overrides["tiles.server"] = *server
	}

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, reg)
	}

	tm := tiles.NewTileManager(
		tiles.NewProvider(cfg.Tiles.Server, cfg.Tiles.UserAgent, cfg.Tiles.Timeout),
		tiles.Options{
			CacheSize: cfg.Tiles.CacheSize,
			Workers:   cfg.Tiles.Workers,
			Timeout:   cfg.Tiles.Timeout,
			Metrics:   m,
		},
	)

	client := poi.NewClient(poi.ClientConfig{
		URL:           cfg.POI.OverpassURL,
		UserAgent:     cfg.Tiles.UserAgent,
		CacheTTL:      cfg.POI.CacheTTL,
		RatePerSecond: cfg.POI.RatePerSecond,
		Metrics:       m,
	})
	loader := poi.NewLoader(client, cfg.POI.Debounce, cfg.POI.MinZoom)

	refresh := make(chan struct{}, 1)
	mv := mapview.New(refresh, tm, loader, mapview.Options{
		Center:             cfg.Center(),
		Zoom:               cfg.Map.Zoom,
		Height:             cfg.Map.Height,
		ShowPOIs:           cfg.Map.ShowPOIs,
		ShowUserLocation:   cfg.Map.ShowUserLocation,
		HideBadges:         cfg.Map.HideBadges,
		SelectedLocationID: cfg.Map.SelectedLocationID,
		SelectedPOIID:      cfg.Map.SelectedPOIID,
		CacheSize:          cfg.Tiles.CacheSize,
	})
	if *locations != "" {
		saved, err := markers.LoadSaved(*locations)
		if err != nil {
			logging.Error().Err(err).Str("path", *locations).Msg("failed to load saved locations")
			os.Exit(1)
		}
		mv.Saved = saved
		logging.Info().Int("count", len(saved)).Msg("saved locations loaded")
	}
	if len(*user) == 2 {
		mv.User = &tiles.LatLng{Lat: (*user)[0], Lng: (*user)[1]}
	}

	mv.OnMapClick = func(ll tiles.LatLng) {
		mv.SelectedSaved, mv.SelectedPOI = 0, ""
		logging.Info().Float64("lat", ll.Lat).Float64("lng", ll.Lng).Msg("map clicked")
	}
	mv.OnMarkerClick = func(e gesture.MarkerClicked) {
		mv.SelectedSaved, mv.SelectedPOI = e.SavedID, e.POIID
		logging.Info().Stringer("kind", e.Kind).Int64("saved_id", e.SavedID).Str("poi_id", e.POIID).Msg("marker clicked")
	}
	mv.OnViewChange = func(v tiles.ViewState) {
		logging.Debug().Float64("lat", v.Center.Lat).Float64("lng", v.Center.Lng).Float64("zoom", v.Zoom).Msg("view changed")
	}
	mv.OnBadgeClick = func() {
		logging.Info().Int("count", len(mv.Saved)).Msg("badge clicked")
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("placemap"), app.Size(unit.Dp(1024), unit.Dp(768)))

		var ops op.Ops
		go func() {
			for range refresh {
				w.Invalidate()
			}
		}()
		for {
			switch e := w.Event().(type) {
			case app.DestroyEvent:
				loader.Clear()
				tm.Close()
				if e.Err != nil {
					logging.Error().Err(e.Err).Msg("window closed")
					os.Exit(1)
				}
				os.Exit(0)
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				mv.Layout(gtx)
				e.Frame(gtx.Ops)
			}
		}
	}()
	app.Main()
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logging.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("metrics server stopped")
	}
}
