// Package config loads placemap settings from defaults, an optional YAML
// file and PLACEMAP_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/olablt/placemap/poi"
	"github.com/olablt/placemap/tiles"
)

const (
	PathEnvVar = "PLACEMAP_CONFIG"
	envPrefix  = "PLACEMAP_"
)

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{
	"placemap.yaml",
	"placemap.yml",
}

type Config struct {
	Map     MapConfig     `koanf:"map"`
	Tiles   TilesConfig   `koanf:"tiles"`
	POI     POIConfig     `koanf:"poi"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type MapConfig struct {
	CenterLat float64 `koanf:"center_lat"`
	CenterLng float64 `koanf:"center_lng"`
	Zoom      float64 `koanf:"zoom"`
	// Height in pixels; zero fills the window.
	Height             int    `koanf:"height"`
	ShowPOIs           bool   `koanf:"show_pois"`
	ShowUserLocation   bool   `koanf:"show_user_location"`
	SelectedLocationID int64  `koanf:"selected_location_id"`
	SelectedPOIID      string `koanf:"selected_poi_id"`
	HideBadges         bool   `koanf:"hide_badges"`
}

type TilesConfig struct {
	// Server is the XYZ base URL, or "local" for generated debug tiles.
	Server    string        `koanf:"server"`
	UserAgent string        `koanf:"user_agent"`
	CacheSize int           `koanf:"cache_size"`
	Workers   int           `koanf:"workers"`
	Timeout   time.Duration `koanf:"timeout"`
}

type POIConfig struct {
	OverpassURL   string        `koanf:"overpass_url"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	Debounce      time.Duration `koanf:"debounce"`
	MinZoom       float64       `koanf:"min_zoom"`
	RatePerSecond float64       `koanf:"rate_per_second"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `koanf:"addr"`
}

func Default() *Config {
	return &Config{
		Map: MapConfig{
			CenterLat:        51.507222,
			CenterLng:        -0.1275,
			Zoom:             13,
			ShowPOIs:         true,
			ShowUserLocation: true,
		},
		Tiles: TilesConfig{
			Server:    tiles.DefaultTileServer,
			UserAgent: "placemap/1.0",
			CacheSize: tiles.DefaultCacheSize,
			Workers:   6,
			Timeout:   10 * time.Second,
		},
		POI: POIConfig{
			OverpassURL:   poi.DefaultOverpassURL,
			CacheTTL:      5 * time.Minute,
			Debounce:      poi.DefaultDebounce,
			MinZoom:       poi.DefaultMinZoom,
			RatePerSecond: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load layers the defaults, the config file at path (or the first of
// PLACEMAP_CONFIG and DefaultPaths that exists) and the environment.
// overrides, keyed by koanf path such as "map.zoom", are applied last.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Map.Zoom = tiles.ClampZoom(cfg.Map.Zoom)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps PLACEMAP_TILES_CACHE_SIZE to tiles.cache_size. Only the first
// underscore separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if s == "config" {
		return ""
	}
	return strings.Replace(s, "_", ".", 1)
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.Map.CenterLat < -tiles.MaxLatitude || c.Map.CenterLat > tiles.MaxLatitude {
		errs = append(errs, fmt.Errorf("map.center_lat %v outside ±%v", c.Map.CenterLat, tiles.MaxLatitude))
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		errs = append(errs, fmt.Errorf("map.center_lng %v outside ±180", c.Map.CenterLng))
	}
	if c.Map.Height < 0 {
		errs = append(errs, errors.New("map.height must not be negative"))
	}
	if c.Tiles.Server == "" {
		errs = append(errs, errors.New("tiles.server is required"))
	}
	if c.Tiles.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("tiles.cache_size must be at least 1, got %d", c.Tiles.CacheSize))
	}
	if c.Tiles.Workers < 1 {
		errs = append(errs, fmt.Errorf("tiles.workers must be at least 1, got %d", c.Tiles.Workers))
	}
	if c.POI.RatePerSecond < 0 {
		errs = append(errs, errors.New("poi.rate_per_second must not be negative"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) Center() tiles.LatLng {
	return tiles.LatLng{Lat: c.Map.CenterLat, Lng: c.Map.CenterLng}
}
