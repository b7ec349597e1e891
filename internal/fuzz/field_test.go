package fuzz

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/printforge/fuzzyskin/internal/dispmap"
	"github.com/printforge/fuzzyskin/internal/paint"
)

func TestRandomFieldStaysWithinBounds(t *testing.T) {
	f := newRandomField(rand.New(rand.NewSource(7)), 0.1, 0.4)
	for i := 0; i < 1000; i++ {
		off := f.Offset(r2.Vec{}, SurfaceTop)
		assert.GreaterOrEqual(t, off, 0.1)
		assert.Less(t, off, 0.4)
	}
}

func TestPaintFieldOffsetsOnlyCoveredVertices(t *testing.T) {
	file := &paint.File{Strokes: []paint.Stroke{
		{Points: [][2]float64{{0, 0}, {2, 0}}},
	}}
	mask, err := paint.BuildMask(file, 0.5, 0.3)
	require.NoError(t, err)

	f := newPaintField(mask, rand.New(rand.NewSource(1)), 0.2, 0.2)

	assert.Equal(t, 0.2, f.Offset(r2.Vec{X: 1, Y: 0.1}, SurfaceTop))
	assert.Equal(t, 0.0, f.Offset(r2.Vec{X: 1, Y: 3}, SurfaceTop))
}

// uniformMap builds a displacement map whose every texel has the given gray
// value.
func uniformMap(t *testing.T, gray uint8) *dispmap.Map {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = gray
	}
	m, err := dispmap.FromImage(img)
	require.NoError(t, err)
	return m
}

func TestMapFieldInvertsOnTopSurfaces(t *testing.T) {
	m := uniformMap(t, 51) // 0.2 after normalization
	b := bounds{minX: 0, minY: 0, maxX: 10, maxY: 10}
	f := newMapField(m, 0, 0.3, b)

	// Dark texels stand proud on top skin, so the sampled 0.2 becomes 0.8.
	assert.InDelta(t, 0.8*0.3, f.Offset(r2.Vec{X: 3, Y: 3}, SurfaceTop), 1e-9)
	// Other surfaces read the map directly.
	assert.InDelta(t, 0.2*0.3, f.Offset(r2.Vec{X: 3, Y: 3}, SurfaceBottom), 1e-9)
}

func TestMapFieldDegenerateBoundsStillSample(t *testing.T) {
	m := uniformMap(t, 255)
	b := bounds{minX: 5, minY: 5, maxX: 5, maxY: 5}
	f := newMapField(m, 0, 0.3, b)
	assert.InDelta(t, 0.3, f.Offset(r2.Vec{X: 5, Y: 5}, SurfaceBottom), 1e-9)
}

func TestTile(t *testing.T) {
	assert.InDelta(t, 0.25, tile(5), 1e-12)
	assert.InDelta(t, 0.25, tile(25), 1e-12)
	assert.InDelta(t, 0.75, tile(-5), 1e-12)
	assert.InDelta(t, 0.0, tile(0), 1e-12)
}

func TestBounds(t *testing.T) {
	b := newBounds()
	assert.False(t, b.valid())

	b.extend(3, -2)
	b.extend(-1, 4)
	assert.True(t, b.valid())
	assert.Equal(t, -1.0, b.minX)
	assert.Equal(t, -2.0, b.minY)
	assert.Equal(t, 3.0, b.maxX)
	assert.Equal(t, 4.0, b.maxY)
}
