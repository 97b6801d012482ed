// Package session ties the point list, the marker pool and the map surface
// together for one map view.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialise access.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/woozymasta/dzpool/internal/clicker"
	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/points"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSlotRange is returned for a slot index outside the pool.
var ErrSlotRange = errors.New("slot index out of range")

// ClickEvent describes a marker click observed by the session.
type ClickEvent struct {
	Time      time.Time  `json:"time"`
	Position  geo.LatLng `json:"position"`
	Slot      int        `json:"slot"`
	Simulated bool       `json:"simulated"`
}

// Options carry optional collaborators.
type Options struct {
	// Source overrides the random source of the point generator.
	Source rand.Source
	// OnClick observes every marker click, user or simulated.
	OnClick func(ClickEvent)
}

// Session owns one map view: its surface, pool, point list and click cursor.
type Session struct {
	opened    time.Time
	surface   surface.Surface
	pool      *pool.Pool
	generator *points.Generator
	recycler  *recycle.Coordinator
	onClick   func(ClickEvent)
	id        string
	points    []geo.LatLng
	last      recycle.Result
	cursor    clicker.Cursor
	simulated bool
}

// Open builds a session: it generates the initial point list, waits for the
// platform, creates the map surface, waits for it, fills the marker pool and
// recycles the points with a camera fit. A pool creation failure closes the
// surface and returns an error wrapping pool.ErrSetup.
func Open(ctx context.Context, provider surface.Provider, ready surface.Readiness, cfg *config.Config, opts Options) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if ready == nil {
		ready = surface.Ready
	}

	gen := points.NewGenerator(cfg.GeneratorBounds(), opts.Source)
	if opts.Source == nil && cfg.Generator.Seed != 0 {
		gen = points.NewSeeded(cfg.GeneratorBounds(), cfg.Generator.Seed)
	}

	s := &Session{
		id:        uuid.NewString(),
		opened:    time.Now(),
		generator: gen,
		onClick:   opts.OnClick,
	}
	s.points = s.generator.Generate(cfg.Pool.Capacity)

	if err := ready.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for platform: %w", err)
	}

	surf, err := provider.Create(ctx, cfg.Display())
	if err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}
	if err := surf.Ready(ctx); err != nil {
		_ = surf.Close()
		return nil, fmt.Errorf("wait for map: %w", err)
	}

	p, err := pool.Create(ctx, surf, cfg.Pool.Capacity, pool.Options{
		ActiveIcon: cfg.Pool.ActiveIcon,
		OnClick:    s.observeClick,
	})
	if err != nil {
		_ = surf.Close()
		return nil, err
	}

	s.surface = surf
	s.pool = p
	s.recycler = recycle.NewCoordinator(surf, cfg.Recycle())
	s.last = s.recycler.Recycle(s.points, s.pool, true)

	log.Info().
		Str("session", s.id).
		Int("capacity", p.Len()).
		Int("points", len(s.points)).
		Int("placed", s.last.Placed).
		Msg("Map session opened")

	return s, nil
}

func (s *Session) observeClick(i int, pos geo.LatLng) {
	if s.onClick == nil {
		return
	}

	s.onClick(ClickEvent{
		Time:      time.Now(),
		Position:  pos,
		Slot:      i,
		Simulated: s.simulated,
	})
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Opened returns the time the session was opened.
func (s *Session) Opened() time.Time {
	return s.opened
}

// Capacity returns the pool size.
func (s *Session) Capacity() int {
	return s.pool.Len()
}

// Again hides every marker, draws a fresh point list and recycles it without
// moving the camera.
func (s *Session) Again() recycle.Result {
	s.pool.Reset()
	s.points = s.generator.Generate(s.pool.Len())
	s.last = s.recycler.Recycle(s.points, s.pool, false)

	return s.last
}

// Reset hides every marker and clears the point list.
func (s *Session) Reset() {
	s.pool.Reset()
	s.points = []geo.LatLng{}
}

// Recycle writes a caller supplied point list onto the pool.
func (s *Session) Recycle(pts []geo.LatLng, animateToFit bool) recycle.Result {
	s.points = make([]geo.LatLng, len(pts))
	copy(s.points, pts)
	s.last = s.recycler.Recycle(s.points, s.pool, animateToFit)

	return s.last
}

// SimulateClick clicks the slot under the cursor and advances it.
func (s *Session) SimulateClick() (int, bool) {
	s.simulated = true
	defer func() { s.simulated = false }()

	return s.cursor.SimulateNext(s.pool)
}

// Click performs a user click on slot i.
func (s *Session) Click(i int) error {
	if !s.pool.Trigger(i) {
		return fmt.Errorf("%w: %d", ErrSlotRange, i)
	}
	return nil
}

// Cursor returns the slot the next simulated click targets.
func (s *Session) Cursor() int {
	return s.cursor.Next()
}

// Points returns a copy of the current point list.
func (s *Session) Points() []geo.LatLng {
	return append([]geo.LatLng(nil), s.points...)
}

// Slots returns the state of every pool slot.
func (s *Session) Slots() []pool.Slot {
	return s.pool.Slots()
}

// LastRecycle returns the outcome of the latest recycle pass.
func (s *Session) LastRecycle() recycle.Result {
	return s.last
}

// Camera returns the current camera of the map surface.
func (s *Session) Camera() surface.CameraPosition {
	return s.surface.Camera()
}

// FeatureCollection returns the visible slots as GeoJSON points.
func (s *Session) FeatureCollection() geo.GeoJSONFeatureCollection {
	slots := s.pool.Slots()
	fc := geo.NewFeatureCollection(len(slots))

	for _, slot := range slots {
		if !slot.Visible {
			continue
		}
		fc.Features = append(fc.Features, geo.PointFeature(slot.Position, map[string]interface{}{
			"slot":   slot.Index,
			"marker": slot.MarkerID,
			"active": slot.Active,
			"zIndex": slot.ZIndex,
		}))
	}

	return fc
}

// Close releases the click subscriptions and the map surface.
func (s *Session) Close() error {
	s.pool.Close()

	log.Info().
		Str("session", s.id).
		Dur("uptime", time.Since(s.opened)).
		Msg("Map session closed")

	return s.surface.Close()
}
