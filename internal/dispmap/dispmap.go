// Package dispmap loads grayscale displacement maps and samples them by
// normalized planar position.
//
// A map is decoded once into a flat grayscale buffer; sampling is bilinear
// over normalized [0,1] coordinates. How positions map onto the texture
// (tiled pattern space, print-bounds fit) is the caller's business.
package dispmap

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

var (
	// ErrUnsupportedFormat is returned when the image format has no
	// registered decoder.
	ErrUnsupportedFormat = errors.New("dispmap: unsupported image format")

	// ErrEmptyImage is returned for images with a zero-area bounds.
	ErrEmptyImage = errors.New("dispmap: empty image")
)

// Maps larger than this on either edge are downscaled at load. Displacement
// detail beyond it is invisible at print resolution.
const maxEdge = 2048

// Map is a decoded displacement map holding one value in [0,1] per texel:
// 0 is black, 1 is white.
type Map struct {
	w, h int
	pix  []float64
}

// Load reads and decodes a displacement map from disk, auto-detecting the
// format (PNG, JPEG, GIF, BMP, TIFF).
func Load(path string) (*Map, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("dispmap: open map: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dispmap: %s: %w", path, err)
	}
	return m, nil
}

// Decode decodes a displacement map from a reader, auto-detecting the format.
func Decode(r io.Reader) (*Map, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromImage(img)
}

// FromImage converts any image into a Map, grayscaling it and downscaling
// oversized inputs to keep the buffer bounded.
func FromImage(img image.Image) (*Map, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrEmptyImage
	}

	if w > maxEdge || h > maxEdge {
		scale := float64(maxEdge) / float64(w)
		if h > w {
			scale = float64(maxEdge) / float64(h)
		}
		w = int(math.Max(1, math.Round(float64(w)*scale)))
		h = int(math.Max(1, math.Round(float64(h)*scale)))
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(gray, gray.Bounds(), img, b, xdraw.Src, nil)

	m := &Map{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, p := range row {
			m.pix[y*w+x] = float64(p) / 255.0
		}
	}
	return m, nil
}

// Size returns the texel dimensions of the map.
func (m *Map) Size() (w, h int) { return m.w, m.h }

// Sample returns the bilinear-interpolated value at normalized coordinates
// (u, v). Coordinates are clamped to [0,1]; the result is in [0,1].
func (m *Map) Sample(u, v float64) float64 {
	u = clamp01(u)
	v = clamp01(v)

	fx := u * float64(m.w-1)
	fy := v * float64(m.h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0
	if x0+1 < m.w {
		x1 = x0 + 1
	}
	y1 := y0
	if y0+1 < m.h {
		y1 = y0 + 1
	}
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	top := lerp(m.at(x0, y0), m.at(x1, y0), tx)
	bot := lerp(m.at(x0, y1), m.at(x1, y1), tx)
	return lerp(top, bot, ty)
}

func (m *Map) at(x, y int) float64 { return m.pix[y*m.w+x] }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
