// Package geo handles geographic data structures and coordinate conversions.
package geo

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned when coordinate text cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Origin is the neutral position of markers that carry no data.
var Origin = LatLng{}

// LatLng is a WGS84 position in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the position lies within the latitude [-90, 90]
// and longitude [-180, 180] ranges. NaN is never valid.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// ParseLatLng parses decimal-degree text for latitude and longitude.
// Range is not checked here, see Valid.
func ParseLatLng(lat, lng string) (LatLng, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return LatLng{}, ErrInvalidCoordinates
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return LatLng{}, ErrInvalidCoordinates
	}

	return LatLng{Lat: la, Lng: lo}, nil
}

// Bounds is a rectangular area anchored at Base and extending Span degrees
// north and east.
type Bounds struct {
	Base LatLng  `yaml:"base" json:"base"`
	Span float64 `yaml:"span" json:"span"`
}

// Contains reports whether p lies in the half-open box
// [Base.Lat, Base.Lat+Span) x [Base.Lng, Base.Lng+Span).
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.Base.Lat && p.Lat < b.Base.Lat+b.Span &&
		p.Lng >= b.Base.Lng && p.Lng < b.Base.Lng+b.Span
}
