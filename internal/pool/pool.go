// Package pool owns a fixed set of reusable map markers.
//
// Markers are created once, in bulk, and afterwards only mutated: recycling
// rewrites their position and visibility to represent new data. A Pool never
// grows or shrinks.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrSetup marks a failed pool construction. No partial pool is returned.
var ErrSetup = errors.New("marker pool setup failed")

// ActiveZIndex is the z-order of a clicked marker.
const ActiveZIndex = 1

// DefaultActiveIcon is the icon applied to clicked markers.
var DefaultActiveIcon = surface.Icon{Size: surface.Size{Width: 36, Height: 59}}

// Options configure a Pool.
type Options struct {
	// ActiveIcon replaces DefaultActiveIcon when its size is set.
	ActiveIcon surface.Icon
	// OnClick observes marker clicks after the active state is applied.
	OnClick func(index int, pos geo.LatLng)
}

// Slot is the observable state of one pool member.
type Slot struct {
	Data     any          `json:"data,omitempty" yaml:"data,omitempty"`
	MarkerID string       `json:"markerId" yaml:"marker_id"`
	Icon     surface.Icon `json:"icon" yaml:"icon"`
	Position geo.LatLng   `json:"position" yaml:"position"`
	Index    int          `json:"index" yaml:"index"`
	ZIndex   int          `json:"zIndex" yaml:"z_index"`
	Visible  bool         `json:"visible" yaml:"visible"`
	Active   bool         `json:"active" yaml:"active"`
}

// Pool is a fixed-capacity set of markers on one surface.
type Pool struct {
	opts    Options
	markers []surface.Marker
	subs    []surface.Subscription

	mu     sync.Mutex
	active []bool
	data   []any
}

// Create adds capacity invisible markers to s concurrently and waits for all
// of them. If any request fails the markers already created are removed and
// an error wrapping ErrSetup is returned.
func Create(ctx context.Context, s surface.Surface, capacity int, opts Options) (*Pool, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no surface", ErrSetup)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrSetup, capacity)
	}
	if opts.ActiveIcon.Size == (surface.Size{}) {
		opts.ActiveIcon.Size = DefaultActiveIcon.Size
	}

	start := time.Now()
	markerOpts := surface.MarkerOptions{
		Position:       geo.Origin,
		Visible:        false,
		DisableAutoPan: true,
		ZIndex:         0,
	}

	markers := make([]surface.Marker, capacity)
	g, gctx := errgroup.WithContext(ctx)
	for i := range markers {
		g.Go(func() error {
			m, err := s.AddMarker(gctx, markerOpts)
			if err != nil {
				return fmt.Errorf("marker %d: %w", i, err)
			}
			markers[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		removed := 0
		for _, m := range markers {
			if m != nil {
				s.RemoveMarker(m)
				removed++
			}
		}
		log.Error().
			Err(err).
			Int("capacity", capacity).
			Int("rolled_back", removed).
			Msg("Marker pool creation failed")

		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	p := &Pool{
		opts:    opts,
		markers: markers,
		subs:    make([]surface.Subscription, capacity),
		active:  make([]bool, capacity),
		data:    make([]any, capacity),
	}
	for i, m := range markers {
		p.subs[i] = m.On(surface.EventClick, p.clickHandler(i))
	}

	log.Info().
		Int("capacity", capacity).
		Dur("took", time.Since(start)).
		Msg("Marker pool created")

	return p, nil
}

// clickHandler marks slot i active. Applying it repeatedly is harmless.
func (p *Pool) clickHandler(i int) surface.Handler {
	return func(ev surface.Event) {
		m := ev.Marker
		if m == nil {
			m = p.markers[i]
		}
		m.SetIcon(p.opts.ActiveIcon)
		m.SetZIndex(ActiveZIndex)

		p.mu.Lock()
		p.active[i] = true
		p.mu.Unlock()

		log.Trace().Int("slot", i).Str("marker", m.ID()).Msg("Marker clicked")

		if p.opts.OnClick != nil {
			p.opts.OnClick(i, ev.Position)
		}
	}
}

// Len returns the pool capacity.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.markers)
}

// Slot returns a copy of the state of slot i.
func (p *Pool) Slot(i int) (Slot, bool) {
	if i < 0 || i >= p.Len() {
		return Slot{}, false
	}

	m := p.markers[i]
	p.mu.Lock()
	active, data := p.active[i], p.data[i]
	p.mu.Unlock()

	return Slot{
		Index:    i,
		MarkerID: m.ID(),
		Position: m.Position(),
		Visible:  m.Visible(),
		ZIndex:   m.ZIndex(),
		Icon:     m.Icon(),
		Active:   active,
		Data:     data,
	}, true
}

// Slots returns the state of every slot in index order.
func (p *Pool) Slots() []Slot {
	out := make([]Slot, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		s, _ := p.Slot(i)
		out = append(out, s)
	}
	return out
}

// Positions returns the current position of every slot in index order.
func (p *Pool) Positions() []geo.LatLng {
	out := make([]geo.LatLng, p.Len())
	for i := range out {
		out[i] = p.markers[i].Position()
	}
	return out
}

// Place moves slot i to pos, shows it and attaches data.
func (p *Pool) Place(i int, pos geo.LatLng, data any) bool {
	if i < 0 || i >= p.Len() {
		return false
	}

	m := p.markers[i]
	m.SetPosition(pos)
	m.SetVisible(true)

	p.mu.Lock()
	p.data[i] = data
	p.mu.Unlock()

	return true
}

// Trigger raises a click on slot i with the slot's own position as payload.
func (p *Pool) Trigger(i int) bool {
	if i < 0 || i >= p.Len() {
		return false
	}

	m := p.markers[i]
	m.Trigger(surface.EventClick, m.Position())
	return true
}

// Reset hides every slot, moves it to the origin and clears its data and
// active flag. No marker is created or destroyed.
func (p *Pool) Reset() {
	if p == nil {
		return
	}

	for i, m := range p.markers {
		m.SetVisible(false)
		m.SetPosition(geo.Origin)

		p.mu.Lock()
		p.data[i] = nil
		p.active[i] = false
		p.mu.Unlock()
	}

	log.Debug().Int("capacity", p.Len()).Msg("Marker pool reset")
}

// Close cancels the click subscriptions. The markers stay on the surface.
func (p *Pool) Close() {
	if p == nil {
		return
	}

	for i, sub := range p.subs {
		if sub != nil {
			sub.Unsubscribe()
			p.subs[i] = nil
		}
	}
}
