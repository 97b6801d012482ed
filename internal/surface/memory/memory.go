// Package memory implements a headless map surface kept entirely in memory.
//
// It backs the viewer server and the simulate command, and serves as the map
// fake in tests: marker creation latency and failures can be injected, and
// every camera transition is recorded.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by operations on a closed surface.
var ErrClosed = errors.New("surface closed")

// ErrInjected is the failure produced by Options.FailAt.
var ErrInjected = errors.New("injected marker creation failure")

// Options tune the behaviour of created surfaces.
type Options struct {
	// Latency delays every AddMarker call.
	Latency time.Duration
	// ReadyAfter delays the map ready signal.
	ReadyAfter time.Duration
	// FailAt makes the n-th AddMarker call (1-based) fail. Zero disables it.
	FailAt int
}

// Provider hands out in-memory surfaces.
type Provider struct {
	Options Options

	mu       sync.Mutex
	surfaces []*Surface
}

// NewProvider returns a provider using opts for every surface.
func NewProvider(opts Options) *Provider {
	return &Provider{Options: opts}
}

// Create implements surface.Provider.
func (p *Provider) Create(ctx context.Context, opts surface.DisplayOptions) (surface.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := New(opts, p.Options)

	p.mu.Lock()
	p.surfaces = append(p.surfaces, s)
	p.mu.Unlock()

	return s, nil
}

// Surfaces returns every surface created so far.
func (p *Provider) Surfaces() []*Surface {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*Surface(nil), p.surfaces...)
}

// Animation is a recorded camera transition. Frame is set when the
// transition framed a set of targets.
type Animation struct {
	Camera surface.CameraPosition
	Frame  geo.Frame
	Framed bool
}

// Surface is an in-memory surface.Surface.
type Surface struct {
	display surface.DisplayOptions
	opts    Options
	ready   chan struct{}
	calls   atomic.Int64

	mu         sync.Mutex
	seq        int
	markers    map[string]*Marker
	camera     surface.CameraPosition
	animations []Animation
	closed     bool
}

// New returns a surface whose ready signal fires after opts.ReadyAfter.
func New(display surface.DisplayOptions, opts Options) *Surface {
	s := &Surface{
		display: display,
		opts:    opts,
		ready:   make(chan struct{}),
		markers: make(map[string]*Marker),
		camera:  display.Camera,
	}

	if opts.ReadyAfter > 0 {
		time.AfterFunc(opts.ReadyAfter, func() { close(s.ready) })
	} else {
		close(s.ready)
	}

	return s
}

// Display returns the options the surface was created with.
func (s *Surface) Display() surface.DisplayOptions {
	return s.display
}

// Ready implements surface.Surface.
func (s *Surface) Ready(ctx context.Context) error {
	select {
	case <-s.ready:
		log.Debug().Msg("Map surface ready")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddMarker implements surface.Surface.
func (s *Surface) AddMarker(ctx context.Context, opts surface.MarkerOptions) (surface.Marker, error) {
	n := s.calls.Add(1)

	if s.opts.Latency > 0 {
		t := time.NewTimer(s.opts.Latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.opts.FailAt > 0 && n == int64(s.opts.FailAt) {
		return nil, fmt.Errorf("marker request %d: %w", n, ErrInjected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	s.seq++
	m := &Marker{
		id:       fmt.Sprintf("marker_%d", s.seq),
		position: opts.Position,
		visible:  opts.Visible,
		zIndex:   opts.ZIndex,
		autoPan:  !opts.DisableAutoPan,
		handlers: make(map[int]surface.Handler),
	}
	s.markers[m.id] = m

	return m, nil
}

// RemoveMarker implements surface.Surface.
func (s *Surface) RemoveMarker(m surface.Marker) {
	if m == nil {
		return
	}

	s.mu.Lock()
	delete(s.markers, m.ID())
	s.mu.Unlock()
}

// MarkerCount returns the number of markers currently on the surface.
func (s *Surface) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.markers)
}

// CameraZoom implements surface.Surface.
func (s *Surface) CameraZoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.camera.Zoom
}

// Camera implements surface.Surface.
func (s *Surface) Camera() surface.CameraPosition {
	s.mu.Lock()
	defer s.mu.Unlock()

	cam := s.camera
	cam.Targets = append([]geo.LatLng(nil), cam.Targets...)
	return cam
}

// AnimateCamera implements surface.Surface. The transition completes
// immediately; its duration is only recorded.
func (s *Surface) AnimateCamera(pos surface.CameraPosition) {
	pos.Targets = append([]geo.LatLng(nil), pos.Targets...)
	pos.Zoom = s.clampZoom(pos.Zoom)

	frame, framed := geo.FrameOf(pos.Targets)
	if framed {
		pos.Target = frame.Center()
	}
	anim := Animation{Camera: pos, Frame: frame, Framed: framed}

	s.mu.Lock()
	s.camera = pos
	s.animations = append(s.animations, anim)
	s.mu.Unlock()

	log.Debug().
		Float64("zoom", pos.Zoom).
		Int("targets", len(pos.Targets)).
		Dur("duration", pos.Duration).
		Msg("Camera animated")
}

// Animations returns every recorded camera transition in order.
func (s *Surface) Animations() []Animation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Animation(nil), s.animations...)
}

// Close implements surface.Surface. Markers are dropped.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.markers = make(map[string]*Marker)

	return nil
}

func (s *Surface) clampZoom(z float64) float64 {
	pref := s.display.Preferences
	if pref.MinZoom > 0 && z < pref.MinZoom {
		return pref.MinZoom
	}
	if pref.MaxZoom > 0 && z > pref.MaxZoom {
		return pref.MaxZoom
	}

	return z
}
