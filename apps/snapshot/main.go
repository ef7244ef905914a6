// Command snapshot renders one map view to a PNG file without a window.
package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/olablt/placemap/config"
	"github.com/olablt/placemap/logging"
	"github.com/olablt/placemap/markers"
	"github.com/olablt/placemap/poi"
	"github.com/olablt/placemap/scene"
	"github.com/olablt/placemap/tiles"
)

type options struct {
	configPath string
	out        string
	locations  string
	width      int
	height     int
	pois       bool
	wait       time.Duration
	overrides  map[string]any
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		logging.Error().Err(err).Msg("snapshot failed")
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "config file")
	fs.StringVarP(&opts.out, "out", "o", "map.png", "output PNG path")
	fs.StringVar(&opts.locations, "locations", "", "JSON file with saved locations")
	fs.IntVar(&opts.width, "width", 800, "image width in pixels")
	fs.IntVar(&opts.height, "height", 600, "image height in pixels")
	fs.BoolVar(&opts.pois, "pois", false, "query and draw points of interest")
	fs.DurationVar(&opts.wait, "wait", 15*time.Second, "how long to wait for tiles")
	lat := fs.Float64("lat", 0, "center latitude")
	lng := fs.Float64("lng", 0, "center longitude")
	zoom := fs.Float64("zoom", 0, "zoom level")
	server := fs.String("tiles", "", `tile server URL, or "local"`)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.width < 1 || opts.height < 1 {
		return options{}, fmt.Errorf("invalid size %dx%d", opts.width, opts.height)
	}

	opts.overrides = map[string]any{}
	if fs.Changed("lat") {
		opts.overrides["map.center_lat"] = *lat
	}
	if fs.Changed("lng") {
		opts.overrides["map.center_lng"] = *lng
	}
	if fs.Changed("zoom") {
		opts.overrides["map.zoom"] = *zoom
	}
	if fs.Changed("tiles") {
		opts.overrides["tiles.server"] = *server
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath, opts.overrides)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	tm := tiles.NewTileManager(
		tiles.NewProvider(cfg.Tiles.Server, cfg.Tiles.UserAgent, cfg.Tiles.Timeout),
		tiles.Options{CacheSize: cfg.Tiles.CacheSize, Workers: cfg.Tiles.Workers, Timeout: cfg.Tiles.Timeout},
	)
	defer tm.Close()

	size := image.Pt(opts.width, opts.height)
	frame := scene.Frame{
		View:          tiles.NewViewState(cfg.Center(), cfg.Map.Zoom),
		ShowPOIs:      opts.pois && cfg.Map.ShowPOIs,
		POIMinZoom:    cfg.POI.MinZoom,
		SelectedSaved: cfg.Map.SelectedLocationID,
		SelectedPOI:   cfg.Map.SelectedPOIID,
	}
	if opts.locations != "" {
		if frame.Saved, err = markers.LoadSaved(opts.locations); err != nil {
			return err
		}
	}
	if frame.POIsVisible() {
		client := poi.NewClient(poi.ClientConfig{URL: cfg.POI.OverpassURL, UserAgent: cfg.Tiles.UserAgent})
		pois, err := client.FetchPOIs(ctx, frame.View.Bounds(size))
		if err != nil {
			logging.Warn().Err(err).Msg("poi query failed, drawing without points of interest")
		}
		frame.POIs = pois
	}

	cv := scene.NewRasterCanvas(size)
	comp := scene.NewCompositor(tm)
	comp.Draw(cv, frame)
	waitForTiles(ctx, tm, opts.wait)
	st := comp.Draw(cv, frame)
	logging.Info().
		Int("tiles", len(st.Tiles)).
		Int("drawn", st.TilesDrawn).
		Int("saved", st.SavedDrawn).
		Int("pois", st.POIsDrawn).
		Msg("frame rendered")

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, cv.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", opts.out, err)
	}
	return f.Close()
}

func waitForTiles(ctx context.Context, tm *tiles.TileManager, wait time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for tm.Pending() > 0 {
		select {
		case <-ctx.Done():
			logging.Warn().Int("pending", tm.Pending()).Msg("gave up waiting for tiles")
			return
		case <-t.C:
		}
	}
}
