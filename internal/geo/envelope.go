package geo

import (
	"github.com/peterstace/simplefeatures/geom"
)

// Frame is the bounding box of a set of positions.
type Frame struct {
	SouthWest LatLng `json:"southWest" yaml:"south_west"`
	NorthEast LatLng `json:"northEast" yaml:"north_east"`
}

// Center returns the midpoint of the frame.
func (f Frame) Center() LatLng {
	return LatLng{
		Lat: (f.SouthWest.Lat + f.NorthEast.Lat) / 2,
		Lng: (f.SouthWest.Lng + f.NorthEast.Lng) / 2,
	}
}

// Contains reports whether p lies inside the frame, edges included.
func (f Frame) Contains(p LatLng) bool {
	return p.Lat >= f.SouthWest.Lat && p.Lat <= f.NorthEast.Lat &&
		p.Lng >= f.SouthWest.Lng && p.Lng <= f.NorthEast.Lng
}

// FrameOf returns the smallest frame holding every position. Non-finite
// positions are ignored. ok is false when no position remains.
func FrameOf(positions []LatLng) (frame Frame, ok bool) {
	var env geom.Envelope
	for _, p := range positions {
		if e, err := env.ExtendToIncludeXY(geom.XY{X: p.Lng, Y: p.Lat}); err == nil {
			env = e
		}
	}

	lo, hi, ok := env.MinMaxXYs()
	if !ok {
		return Frame{}, false
	}

	return Frame{
		SouthWest: LatLng{Lat: lo.Y, Lng: lo.X},
		NorthEast: LatLng{Lat: hi.Y, Lng: hi.X},
	}, true
}
