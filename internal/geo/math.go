package geo

import (
	"github.com/wroge/wgs84"
)

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

var toWebMercator = wgs84.EPSG().Transform(4326, 3857)

// WebMercator projects a WGS84 position to EPSG:3857 meters.
// Latitude is clamped to the projection limit first.
func WebMercator(p LatLng) (x, y float64) {
	lat := p.Lat
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x, y, _ = toWebMercator(p.Lng, lat, 0)
	return x, y
}
