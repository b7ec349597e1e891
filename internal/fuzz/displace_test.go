package fuzz

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

// constField displaces every vertex by the same offset.
type constField struct{ off float64 }

func (f constField) Offset(_ r2.Vec, _ Surface) float64 { return f.off }

func TestApplyFieldEndpointRulesRandom(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)

	cfg := Config{Mode: ModeRandom, ConnectWalls: true, ZMin: 0.1, ZMax: 0.3}
	field := newRandomField(rand.New(rand.NewSource(1)), cfg.ZMin, cfg.ZMax)

	displaced := r.applyField(field, &cfg, 0)

	require.Len(t, r.verts, 5)
	assert.Equal(t, 0.0, r.verts[0].offset, "connectWalls pins the first vertex to the plane")
	assert.Equal(t, 0.0, r.verts[4].offset, "final vertex stays on the plane in random mode")
	for _, v := range r.verts[1:4] {
		assert.GreaterOrEqual(t, v.offset, cfg.ZMin)
		assert.LessOrEqual(t, v.offset, cfg.ZMax)
	}
	assert.Equal(t, 3, displaced)
}

func TestApplyFieldDisplacesFirstVertexWithoutConnectWalls(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)

	cfg := Config{Mode: ModeRandom, ZMin: 0.1, ZMax: 0.3}
	field := newRandomField(rand.New(rand.NewSource(1)), cfg.ZMin, cfg.ZMax)

	displaced := r.applyField(field, &cfg, 0)

	assert.GreaterOrEqual(t, r.verts[0].offset, cfg.ZMin)
	assert.LessOrEqual(t, r.verts[0].offset, cfg.ZMax)
	assert.Equal(t, 0.0, r.verts[4].offset, "final vertex stays on the plane in random mode")
	assert.Equal(t, 4, displaced)
}

func TestApplyFieldKeepsFinalVertexInMapMode(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)

	cfg := Config{Mode: ModeMap, ConnectWalls: true}
	displaced := r.applyField(constField{off: 0.2}, &cfg, 0)

	assert.Equal(t, 0.0, r.verts[0].offset)
	assert.Equal(t, 0.2, r.verts[4].offset)
	assert.Equal(t, 4, displaced)
}

func TestApplyFieldClampsAtLayerPlane(t *testing.T) {
	st := stateAt(t, 0, 0, 0.2)
	r := runFrom(t, st, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)

	cfg := Config{Mode: ModeMap, ConnectWalls: true}
	displaced := r.applyField(constField{off: -0.5}, &cfg, 0.2)

	for i, v := range r.verts {
		assert.Equal(t, 0.2, v.z, "vertex %d must not dip below the layer", i)
		assert.Equal(t, 0.0, v.offset, "vertex %d", i)
	}
	assert.Equal(t, 0, displaced)
}

func TestApplyFieldLetsBridgesSag(t *testing.T) {
	st := stateAt(t, 0, 0, 0.2)
	r := runFrom(t, st, SurfaceBottom, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)

	cfg := Config{Mode: ModeMap, ConnectWalls: true}
	displaced := r.applyField(constField{off: -0.15}, &cfg, 0.2)

	assert.Equal(t, 0.2, r.verts[0].z)
	for _, v := range r.verts[1:] {
		assert.InDelta(t, 0.05, v.z, 1e-9)
	}
	assert.Equal(t, 4, displaced)
}

func TestCompensate(t *testing.T) {
	// One sub-segment climbing 0.4mm over 0.3mm planar: a 3-4-5 triangle,
	// so the true path is 0.5mm.
	mkRun := func(surface Surface) *run {
		return &run{
			surface: surface,
			verts:   []vertex{{z: 0}, {z: 0.4}},
			segs:    []subseg{{planar: 0.3, baseE: 0.3}},
		}
	}

	t.Run("scales to true path length", func(t *testing.T) {
		r := mkRun(SurfaceTop)
		cfg := Config{CompensateExtrusion: true, BridgeCompensationMultiplier: 3}
		r.compensate(&cfg)
		assert.InDelta(t, 0.5, r.segs[0].e, 1e-9)
	})

	t.Run("bridge surplus is multiplied", func(t *testing.T) {
		r := mkRun(SurfaceBottom)
		cfg := Config{CompensateExtrusion: true, BridgeCompensationMultiplier: 3}
		r.compensate(&cfg)
		assert.InDelta(t, 0.9, r.segs[0].e, 1e-9)
	})

	t.Run("disabled leaves the planar split", func(t *testing.T) {
		r := mkRun(SurfaceTop)
		cfg := Config{CompensateExtrusion: false}
		r.compensate(&cfg)
		assert.Equal(t, 0.3, r.segs[0].e)
	})

	t.Run("flat segments are untouched", func(t *testing.T) {
		r := &run{
			surface: SurfaceTop,
			verts:   []vertex{{z: 0.2}, {z: 0.2}},
			segs:    []subseg{{planar: 0.3, baseE: 0.3}},
		}
		cfg := Config{CompensateExtrusion: true, BridgeCompensationMultiplier: 3}
		r.compensate(&cfg)
		assert.Equal(t, 0.3, r.segs[0].e)
	})
}
