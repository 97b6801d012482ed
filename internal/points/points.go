// Package points produces random point lists for the marker pool.
package points

import (
	"math"
	"math/rand/v2"

	"github.com/woozymasta/dzpool/internal/geo"
)

// DefaultBounds is the area the demo points are drawn from.
var DefaultBounds = geo.Bounds{Base: geo.LatLng{Lat: 50, Lng: 7}, Span: 1}

// Generator draws points uniformly from a bounding box.
type Generator struct {
	rnd    *rand.Rand
	bounds geo.Bounds
}

// NewGenerator returns a generator over bounds. A zero span falls back to 1 degree.
// If src is nil a randomly seeded source is used.
func NewGenerator(bounds geo.Bounds, src rand.Source) *Generator {
	if bounds.Span <= 0 {
		bounds.Span = 1
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Generator{rnd: rand.New(src), bounds: bounds}
}

// NewSeeded returns a deterministic generator.
func NewSeeded(bounds geo.Bounds, seed uint64) *Generator {
	return NewGenerator(bounds, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Bounds returns the box points are drawn from.
func (g *Generator) Bounds() geo.Bounds {
	return g.bounds
}

// Generate returns count points, latitude in [base.Lat, base.Lat+span) and
// longitude in [base.Lng, base.Lng+span).
func (g *Generator) Generate(count int) []geo.LatLng {
	if count < 0 {
		count = 0
	}

	out := make([]geo.LatLng, count)
	for i := range out {
		out[i] = geo.LatLng{
			Lat: g.draw(g.bounds.Base.Lat),
			Lng: g.draw(g.bounds.Base.Lng),
		}
	}

	return out
}

func (g *Generator) draw(base float64) float64 {
	upper := base + g.bounds.Span
	v := base + g.rnd.Float64()*g.bounds.Span
	// rounding can land exactly on the exclusive upper bound
	if v >= upper {
		v = math.Nextafter(upper, base)
	}

	return v
}
