// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/points"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/surface"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Attribution string           `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Generator   Generator        `yaml:"generator" json:"generator"`
	Camera      Camera           `yaml:"camera" json:"camera"`
	Server      Server           `yaml:"server" json:"-"`
	Pool        Pool             `yaml:"pool" json:"pool"`
	Controls    surface.Controls `yaml:"controls" json:"controls"`
}

// Pool sizes the marker pool.
type Pool struct {
	ActiveIcon surface.Icon `yaml:"active_icon" json:"activeIcon"`
	Capacity   int          `yaml:"capacity" json:"capacity"`
}

// Generator bounds the random demo points.
type Generator struct {
	BaseLat float64 `yaml:"base_lat" json:"baseLat"`
	BaseLng float64 `yaml:"base_lng" json:"baseLng"`
	Span    float64 `yaml:"span" json:"span"`
	// Seed makes point lists reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed,omitempty" json:"-"`
}

// Camera holds the initial viewport and transition settings.
type Camera struct {
	Target          geo.LatLng    `yaml:"target" json:"target"`
	Zoom            float64       `yaml:"zoom" json:"zoom"`
	Duration        time.Duration `yaml:"duration" json:"duration"`
	MinZoom         float64       `yaml:"min_zoom" json:"minZoom"`
	MaxZoom         float64       `yaml:"max_zoom" json:"maxZoom"`
	DefaultDuration time.Duration `yaml:"default_duration" json:"defaultDuration"`
	FitDuration     time.Duration `yaml:"fit_duration" json:"fitDuration"`
}

// Server holds viewer settings.
type Server struct {
	SnapshotWidth   int     `yaml:"snapshot_width"`
	SnapshotHeight  int     `yaml:"snapshot_height"`
	SnapshotQuality float32 `yaml:"snapshot_quality"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Attribution: "&copy; OpenStreetMap contributors",
		Pool: Pool{
			Capacity:   50,
			ActiveIcon: pool.DefaultActiveIcon,
		},
		Generator: Generator{
			BaseLat: points.DefaultBounds.Base.Lat,
			BaseLng: points.DefaultBounds.Base.Lng,
			Span:    points.DefaultBounds.Span,
		},
		Camera: Camera{
			Target:          geo.LatLng{Lat: 50.813903, Lng: 7.1772422},
			Zoom:            6,
			Duration:        100 * time.Millisecond,
			MinZoom:         recycle.DefaultMinZoom,
			MaxZoom:         19,
			DefaultDuration: recycle.DefaultDuration,
			FitDuration:     recycle.DefaultFitDuration,
		},
		Server: Server{
			SnapshotWidth:   512,
			SnapshotHeight:  512,
			SnapshotQuality: 85,
		},
	}
}

// Load reads the YAML configuration file at path on top of Default.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Pool.Capacity <= 0:
		return fmt.Errorf("%w: pool.capacity must be > 0, got %d", ErrInvalid, c.Pool.Capacity)
	case c.Generator.Span <= 0:
		return fmt.Errorf("%w: generator.span must be > 0, got %g", ErrInvalid, c.Generator.Span)
	case !c.GeneratorBounds().Base.Valid():
		return fmt.Errorf("%w: generator base is not a valid coordinate", ErrInvalid)
	case c.Camera.MinZoom > c.Camera.MaxZoom:
		return fmt.Errorf("%w: camera.min_zoom %g above camera.max_zoom %g", ErrInvalid, c.Camera.MinZoom, c.Camera.MaxZoom)
	case c.Server.SnapshotQuality < 0 || c.Server.SnapshotQuality > 100:
		return fmt.Errorf("%w: server.snapshot_quality must be within 0..100", ErrInvalid)
	}

	return nil
}

// GeneratorBounds returns the area demo points are drawn from.
func (c *Config) GeneratorBounds() geo.Bounds {
	return geo.Bounds{
		Base: geo.LatLng{Lat: c.Generator.BaseLat, Lng: c.Generator.BaseLng},
		Span: c.Generator.Span,
	}
}

// Display returns the options used to create the map surface.
func (c *Config) Display() surface.DisplayOptions {
	return surface.DisplayOptions{
		Camera: surface.CameraPosition{
			Target:   c.Camera.Target,
			Zoom:     c.Camera.Zoom,
			Duration: c.Camera.Duration,
		},
		Preferences: surface.Preferences{
			MinZoom: c.Camera.MinZoom,
			MaxZoom: c.Camera.MaxZoom,
		},
		Controls: c.Controls,
	}
}

// Recycle returns the camera settings of the recycle coordinator.
func (c *Config) Recycle() recycle.Options {
	return recycle.Options{
		MinZoom:     c.Camera.MinZoom,
		Duration:    c.Camera.DefaultDuration,
		FitDuration: c.Camera.FitDuration,
	}
}
