package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/olablt/placemap/logging"
)

const DefaultTileServer = "https://tile.openstreetmap.org"

var (
	// ErrTileStatus is returned for any non-200 tile response.
	ErrTileStatus = errors.New("unexpected tile status")
	// ErrInvalidTile is returned for keys outside [0, 2^zoom).
	ErrInvalidTile = errors.New("tile index out of range")
)

// TileProvider produces decoded tile images.
type TileProvider interface {
	GetTile(ctx context.Context, tile TileKey) (image.Image, error)
}

// HTTPTileProvider fetches raster tiles from an XYZ server laid out as
// {server}/{zoom}/{x}/{y}.png.
type HTTPTileProvider struct {
	server    string
	userAgent string
	client    *http.Client
}

func NewHTTPTileProvider(server, userAgent string, client *http.Client) *HTTPTileProvider {
	if server == "" {
		server = DefaultTileServer
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTileProvider{
		server:    strings.TrimRight(server, "/"),
		userAgent: userAgent,
		client:    client,
	}
}

func (p *HTTPTileProvider) GetTile(ctx context.Context, tile TileKey) (image.Image, error) {
	if !tile.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTile, tile)
	}
	url := p.GetTileURL(tile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for tile %s: %w", tile, err)
	}
	// The public OSM servers reject requests without an identifying agent.
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "image/png,image/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %s: %w", tile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d for tile %s", ErrTileStatus, resp.StatusCode, tile)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding tile %s: %w", tile, err)
	}

	logging.Debug().Str("tile", tile.String()).Msg("tile downloaded")
	return img, nil
}

// GetTileURL returns the URL for downloading the map tile
func (p *HTTPTileProvider) GetTileURL(tile TileKey) string {
	return fmt.Sprintf("%s/%d/%d/%d.png", p.server, tile.Zoom, tile.X, tile.Y)
}

// NewProvider returns the provider for a configured server: LocalTileServer
// selects generated debug tiles, anything else an HTTP XYZ server.
func NewProvider(server, userAgent string, timeout time.Duration) TileProvider {
	if server == LocalTileServer {
		return NewLocalTileProvider()
	}
	return NewHTTPTileProvider(server, userAgent, &http.Client{Timeout: timeout})
}
