package markers

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// ReadSaved decodes a JSON array of saved locations.
func ReadSaved(r io.Reader) ([]SavedLocation, error) {
	var locs []SavedLocation
	if err := json.NewDecoder(r).Decode(&locs); err != nil {
		return nil, fmt.Errorf("decoding saved locations: %w", err)
	}
	return locs, nil
}

// LoadSaved reads saved locations from a JSON file.
func LoadSaved(path string) ([]SavedLocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSaved(f)
}
