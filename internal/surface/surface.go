// Package surface defines the map surface boundary the marker pool works against.
//
// A Provider renders a map for a target and hands out a Surface. Markers are
// created asynchronously on the Surface and expose a small mutable state plus
// an event hook. Implementations must be safe for concurrent AddMarker calls.
package surface

import (
	"context"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
)

// EventType names a marker event.
type EventType string

// EventClick is raised when a marker is clicked, by a user or synthetically.
const EventClick EventType = "marker_click"

// Event is delivered to marker handlers. Position is the event payload,
// Marker is the marker that raised it.
type Event struct {
	Type     EventType
	Position geo.LatLng
	Marker   Marker
}

// Handler receives marker events.
type Handler func(Event)

// Subscription is a long-lived listener registration.
type Subscription interface {
	Unsubscribe()
}

// Size is an icon size in pixels.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Icon describes a marker icon. The zero value is the platform default.
type Icon struct {
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
	Size Size   `yaml:"size" json:"size"`
}

// MarkerOptions are applied when a marker is created.
type MarkerOptions struct {
	Position       geo.LatLng
	Visible        bool
	DisableAutoPan bool
	ZIndex         int
}

// Marker is a handle to a marker living on a Surface.
type Marker interface {
	ID() string
	SetPosition(geo.LatLng)
	Position() geo.LatLng
	SetVisible(bool)
	Visible() bool
	SetIcon(Icon)
	Icon() Icon
	SetZIndex(int)
	ZIndex() int
	On(EventType, Handler) Subscription
	Trigger(EventType, geo.LatLng)
}

// CameraPosition is a viewport transition. With Targets set the camera frames
// all of them, otherwise it centres on Target.
type CameraPosition struct {
	Target   geo.LatLng    `json:"target"`
	Targets  []geo.LatLng  `json:"targets,omitempty"`
	Zoom     float64       `json:"zoom"`
	Duration time.Duration `json:"duration"`
}

// Preferences bound the zoom levels the user can reach.
type Preferences struct {
	MinZoom float64 `yaml:"min_zoom" json:"minZoom"`
	MaxZoom float64 `yaml:"max_zoom" json:"maxZoom"`
}

// Controls toggles the map UI chrome.
type Controls struct {
	Compass          bool `yaml:"compass" json:"compass"`
	MyLocationButton bool `yaml:"my_location_button" json:"myLocationButton"`
	IndoorPicker     bool `yaml:"indoor_picker" json:"indoorPicker"`
	Zoom             bool `yaml:"zoom" json:"zoom"`
	MapToolbar       bool `yaml:"map_toolbar" json:"mapToolbar"`
}

// DisplayOptions configure a new Surface.
type DisplayOptions struct {
	Camera      CameraPosition
	Preferences Preferences
	Controls    Controls
}

// Surface is a rendered map.
type Surface interface {
	// Ready blocks until the map can accept markers.
	Ready(ctx context.Context) error
	AddMarker(ctx context.Context, opts MarkerOptions) (Marker, error)
	RemoveMarker(Marker)
	CameraZoom() float64
	AnimateCamera(CameraPosition)
	Camera() CameraPosition
	Close() error
}

// Provider creates map surfaces.
type Provider interface {
	Create(ctx context.Context, opts DisplayOptions) (Surface, error)
}

// Readiness signals that the host environment can render.
type Readiness interface {
	Wait(ctx context.Context) error
}

// ReadyFunc adapts a function to Readiness.
type ReadyFunc func(ctx context.Context) error

// Wait calls f.
func (f ReadyFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// Ready is a Readiness that is already satisfied.
var Ready Readiness = ReadyFunc(func(ctx context.Context) error {
	return ctx.Err()
})

// ReadyChan returns a Readiness that resolves once ch is closed.
func ReadyChan(ch <-chan struct{}) Readiness {
	return ReadyFunc(func(ctx context.Context) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
