// Package render draws a still image of the marker pool.
package render

import (
	"image"
	"image/color"
	"io"
	"sort"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	// supersample is the factor markers are drawn at before scaling down.
	supersample  = 2
	defaultMark  = 8
	defaultInset = 24
)

var (
	background = color.RGBA{R: 0xee, G: 0xf1, B: 0xf4, A: 0xff}
	markerFill = color.RGBA{R: 0xd9, G: 0x3a, B: 0x2b, A: 0xff}
	activeFill = color.RGBA{R: 0x1f, G: 0x6f, B: 0xd1, A: 0xff}
)

// Options size the output image.
type Options struct {
	Width   int
	Height  int
	Padding int
}

// Render draws the visible slots framed to fit the image. Markers are drawn
// in z-order, active ones larger and in a distinct colour.
func Render(slots []pool.Slot, opts Options) *image.RGBA {
	if opts.Width <= 0 {
		opts.Width = 512
	}
	if opts.Height <= 0 {
		opts.Height = 512
	}
	if opts.Padding <= 0 {
		opts.Padding = defaultInset
	}

	w, h := opts.Width*supersample, opts.Height*supersample
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	visible := make([]pool.Slot, 0, len(slots))
	positions := make([]geo.LatLng, 0, len(slots))
	for _, s := range slots {
		if s.Visible {
			visible = append(visible, s)
			positions = append(positions, s.Position)
		}
	}

	if frame, ok := geo.FrameOf(positions); ok {
		proj := newProjection(frame, w, h, opts.Padding*supersample)

		sort.SliceStable(visible, func(i, j int) bool {
			return visible[i].ZIndex < visible[j].ZIndex
		})
		for _, s := range visible {
			x, y := proj.pixel(s.Position)
			drawMarker(canvas, x, y, s)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Over, nil)

	return out
}

// EncodeWebP writes img as lossy webp.
func EncodeWebP(w io.Writer, img image.Image, quality float32) error {
	if quality <= 0 {
		quality = 85
	}

	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: quality})
}

func drawMarker(dst *image.RGBA, x, y int, s pool.Slot) {
	size := defaultMark * supersample
	fill := markerFill

	if s.Active {
		fill = activeFill
		// square sized from the icon height, scaled down to map pixels
		if s.Icon.Size.Height > 0 {
			size = s.Icon.Size.Height * supersample / 4
		} else {
			size *= 2
		}
	}

	r := image.Rect(x-size/2, y-size/2, x+size/2+1, y+size/2+1).Intersect(dst.Bounds())
	xdraw.Draw(dst, r, image.NewUniform(fill), image.Point{}, xdraw.Src)
}

type projection struct {
	minX, maxY float64
	scale      float64
	offX, offY float64
}

// newProjection maps the frame, in Web Mercator meters, onto a w x h canvas
// with pad pixels on every side and the aspect ratio preserved.
func newProjection(f geo.Frame, w, h, pad int) projection {
	minX, minY := geo.WebMercator(f.SouthWest)
	maxX, maxY := geo.WebMercator(f.NorthEast)

	spanX, spanY := maxX-minX, maxY-minY
	availW, availH := float64(w-2*pad), float64(h-2*pad)

	var scale float64
	switch {
	case spanX == 0 && spanY == 0:
		scale = 1
	case spanX == 0:
		scale = availH / spanY
	case spanY == 0:
		scale = availW / spanX
	default:
		scale = min(availW/spanX, availH/spanY)
	}

	return projection{
		minX:  minX,
		maxY:  maxY,
		scale: scale,
		offX:  float64(pad) + (availW-spanX*scale)/2,
		offY:  float64(pad) + (availH-spanY*scale)/2,
	}
}

func (p projection) pixel(pos geo.LatLng) (int, int) {
	x, y := geo.WebMercator(pos)
	px := p.offX + (x-p.minX)*p.scale
	py := p.offY + (p.maxY-y)*p.scale

	return int(px + 0.5), int(py + 0.5)
}
