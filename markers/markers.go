package markers

import (
	"strconv"

	"github.com/olablt/placemap/tiles"
)

// Kind discriminates the marker layers.
type Kind int

const (
	KindSaved Kind = iota
	KindPOI
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindSaved:
		return "saved"
	case KindPOI:
		return "poi"
	case KindUser:
		return "user"
	}
	return "unknown"
}

// SavedLocation is a user-submitted place from the backend. IDs start at 1;
// zero means "no location" wherever an ID is used as a selection.
type SavedLocation struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Lat         float64  `json:"latitude"`
	Lng         float64  `json:"longitude"`
	Category    Category `json:"category"`
	Permanent   bool     `json:"permanent,omitempty"`
}

func (l SavedLocation) LatLng() tiles.LatLng { return tiles.LatLng{Lat: l.Lat, Lng: l.Lng} }

func (l SavedLocation) Key() string { return strconv.FormatInt(l.ID, 10) }

func (l SavedLocation) Style() Style { return SavedStyle(l.Category) }

// POI is a point of interest from a third-party geographic database.
type POI struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Category     Category          `json:"category"`
	Lat          float64           `json:"latitude"`
	Lng          float64           `json:"longitude"`
	Tags         map[string]string `json:"tags,omitempty"`
	Cuisine      string            `json:"cuisine,omitempty"`
	OpeningHours string            `json:"opening_hours,omitempty"`
	Website      string            `json:"website,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Street       string            `json:"addr_street,omitempty"`
	HouseNumber  string            `json:"addr_housenumber,omitempty"`
}

func (p POI) LatLng() tiles.LatLng { return tiles.LatLng{Lat: p.Lat, Lng: p.Lng} }

func (p POI) Style() Style { return POIStyle(p.Category) }
