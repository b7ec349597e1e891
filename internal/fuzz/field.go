package fuzz

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/printforge/fuzzyskin/internal/dispmap"
	"github.com/printforge/fuzzyskin/internal/paint"
)

// Top surfaces tile the displacement map in blocks of this many millimeters.
const patternScale = 20.0

// Field assigns an out-of-plane offset to a subdivision vertex at planar
// position p on a surface of the given class. Every returned offset lies
// within the configured [zMin, zMax].
type Field interface {
	Offset(p r2.Vec, surface Surface) float64
}

// randomField draws offsets independently and uniformly from [zMin, zMax].
type randomField struct {
	rng        *rand.Rand
	zMin, zMax float64
}

func newRandomField(rng *rand.Rand, zMin, zMax float64) *randomField {
	return &randomField{rng: rng, zMin: zMin, zMax: zMax}
}

func (f *randomField) Offset(_ r2.Vec, _ Surface) float64 {
	return f.zMin + f.rng.Float64()*(f.zMax-f.zMin)
}

// paintField offsets only vertices covered by painted strokes; everything
// outside the mask stays on the surface plane.
type paintField struct {
	mask       *paint.Mask
	rng        *rand.Rand
	zMin, zMax float64
}

func newPaintField(mask *paint.Mask, rng *rand.Rand, zMin, zMax float64) *paintField {
	return &paintField{mask: mask, rng: rng, zMin: zMin, zMax: zMax}
}

func (f *paintField) Offset(p r2.Vec, _ Surface) float64 {
	if !f.mask.Covers(p) {
		return 0
	}
	return f.zMin + f.rng.Float64()*(f.zMax-f.zMin)
}

// mapField samples a grayscale displacement map. Top surfaces read the map
// as a repeating pattern tile with dark texels standing proud; other
// surfaces stretch the map once across the printed bounds.
type mapField struct {
	m            *dispmap.Map
	zMin, zMax   float64
	minX, minY   float64
	spanX, spanY float64
}

func newMapField(m *dispmap.Map, zMin, zMax float64, b bounds) *mapField {
	f := &mapField{
		m:    m,
		zMin: zMin, zMax: zMax,
		minX: b.minX, minY: b.minY,
		spanX: b.maxX - b.minX,
		spanY: b.maxY - b.minY,
	}
	if f.spanX <= 0 {
		f.spanX = 1
	}
	if f.spanY <= 0 {
		f.spanY = 1
	}
	return f
}

func (f *mapField) Offset(p r2.Vec, surface Surface) float64 {
	var val float64
	if surface == SurfaceTop {
		val = 1 - f.m.Sample(tile(p.X), tile(p.Y))
	} else {
		val = f.m.Sample((p.X-f.minX)/f.spanX, (p.Y-f.minY)/f.spanY)
	}
	return f.zMin + val*(f.zMax-f.zMin)
}

// tile maps a plate coordinate into the repeating [0,1) pattern space.
func tile(c float64) float64 {
	t := math.Mod(c, patternScale)
	if t < 0 {
		t += patternScale
	}
	return t / patternScale
}

// bounds is the planar extent of the extruding moves in a file, used to
// stretch displacement maps over the print.
type bounds struct {
	minX, minY float64
	maxX, maxY float64
}

func newBounds() bounds {
	return bounds{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (b *bounds) extend(x, y float64) {
	b.minX = math.Min(b.minX, x)
	b.minY = math.Min(b.minY, y)
	b.maxX = math.Max(b.maxX, x)
	b.maxY = math.Max(b.maxY, y)
}

func (b *bounds) valid() bool { return b.minX <= b.maxX && b.minY <= b.maxY }
