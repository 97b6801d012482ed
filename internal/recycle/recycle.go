// Package recycle maps a point list onto a marker pool.
package recycle

import (
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/rs/zerolog/log"
)

// Default camera settings.
const (
	DefaultDuration    = 50 * time.Millisecond
	DefaultFitDuration = 100 * time.Millisecond
	DefaultMinZoom     = 1
)

// Options configure the camera transition issued after a fitting recycle.
type Options struct {
	// MinZoom is the most zoomed-out level, used as the fit target zoom.
	MinZoom float64
	// Duration is the default transition duration.
	Duration time.Duration
	// FitDuration overrides Duration for the fit transition when set.
	FitDuration time.Duration
}

// Result summarises one recycle pass.
type Result struct {
	Placed    int  `json:"placed"`
	Skipped   int  `json:"skipped"`
	Truncated int  `json:"truncated"`
	Fitted    bool `json:"fitted"`
}

// Coordinator writes point lists onto pools and frames the camera.
type Coordinator struct {
	surface surface.Surface
	opts    Options
}

// NewCoordinator returns a coordinator driving the camera of s.
func NewCoordinator(s surface.Surface, opts Options) *Coordinator {
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}

	return &Coordinator{surface: s, opts: opts}
}

// Recycle writes points[i] onto slot i. Points that fall outside the valid
// latitude/longitude range leave their slot untouched. Points beyond the pool
// capacity are dropped and slots beyond the point list keep their state.
// With animateToFit the camera frames every slot at the minimum zoom.
func (c *Coordinator) Recycle(points []geo.LatLng, p *pool.Pool, animateToFit bool) Result {
	var res Result
	if points == nil || p == nil {
		log.Trace().Msg("Recycle skipped: pool or point list not ready")
		return res
	}

	n := min(len(points), p.Len())
	res.Truncated = len(points) - n

	for i := 0; i < n; i++ {
		pt := points[i]
		if !pt.Valid() {
			res.Skipped++
			log.Trace().
				Int("slot", i).
				Float64("lat", pt.Lat).
				Float64("lng", pt.Lng).
				Msg("Invalid point skipped")
			continue
		}

		p.Place(i, pt, pt)
		res.Placed++
	}

	if animateToFit && c.surface != nil {
		cam := surface.CameraPosition{
			Zoom:     c.opts.MinZoom,
			Targets:  p.Positions(),
			Duration: c.opts.Duration,
		}
		if c.opts.FitDuration > 0 {
			cam.Duration = c.opts.FitDuration
		}

		c.surface.AnimateCamera(cam)
		res.Fitted = true
	}

	log.Debug().
		Int("points", len(points)).
		Int("placed", res.Placed).
		Int("skipped", res.Skipped).
		Int("truncated", res.Truncated).
		Bool("fitted", res.Fitted).
		Msg("Markers recycled")

	return res
}
