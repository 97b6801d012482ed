// Package export writes session reports and snapshots to disk.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/render"
	"github.com/woozymasta/dzpool/internal/session"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Supported report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ZstdExt marks output paths that are written zstd-compressed.
const ZstdExt = ".zst"

// ErrFormat is returned for an unknown report format.
var ErrFormat = errors.New("unsupported report format")

// Report is the final state of a headless run.
type Report struct {
	Generated time.Time                    `json:"generated" yaml:"generated"`
	Session   string                       `json:"session" yaml:"session"`
	Camera    surface.CameraPosition       `json:"camera" yaml:"camera"`
	Rounds    []recycle.Result             `json:"rounds" yaml:"rounds"`
	Clicks    []session.ClickEvent         `json:"clicks" yaml:"clicks"`
	Slots     []pool.Slot                  `json:"slots" yaml:"slots"`
	Markers   geo.GeoJSONFeatureCollection `json:"markers" yaml:"markers"`
}

// NewReport captures the current state of sess.
func NewReport(sess *session.Session, rounds []recycle.Result, clicks []session.ClickEvent) Report {
	return Report{
		Generated: time.Now().UTC(),
		Session:   sess.ID(),
		Camera:    sess.Camera(),
		Rounds:    rounds,
		Clicks:    clicks,
		Slots:     sess.Slots(),
		Markers:   sess.FeatureCollection(),
	}
}

// Marshal encodes r as indented JSON or YAML.
func Marshal(r Report, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(r, "", "  ")
	case FormatYAML:
		return yaml.Marshal(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
}

// WriteReport marshals r and writes it to path, creating parent directories.
// Paths ending in ZstdExt are compressed. An empty path writes to w.
func WriteReport(w io.Writer, path, format string, r Report) error {
	data, err := Marshal(r, format)
	if err != nil {
		return err
	}

	if path == "" {
		_, err = w.Write(data)
		return err
	}

	return writeFile(path, func(f io.Writer) error {
		if !strings.HasSuffix(path, ZstdExt) {
			_, err := f.Write(data)
			return err
		}

		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
}

// WriteSnapshot renders slots and writes them to path as webp.
func WriteSnapshot(path string, slots []pool.Slot, opts render.Options, quality float32) error {
	img := render.Render(slots, opts)

	return writeFile(path, func(f io.Writer) error {
		return render.EncodeWebP(f, img, quality)
	})
}

// ReadReport loads a report written by WriteReport, decompressing zstd
// files. The format is taken from the file extension.
func ReadReport(path string) (Report, error) {
	var r Report

	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}

	name := path
	if strings.HasSuffix(name, ZstdExt) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return r, err
		}
		defer dec.Close()

		if data, err = dec.DecodeAll(data, nil); err != nil {
			return r, fmt.Errorf("decompress %s: %w", path, err)
		}
		name = strings.TrimSuffix(name, ZstdExt)
	}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}

	return r, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(f)
}
