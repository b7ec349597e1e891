package fuzz

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/printforge/fuzzyskin/internal/gcode"
)

// flatten zeroes every offset so render output depends only on geometry.
func flatten(r *run, cfg *Config) {
	r.applyField(constField{off: 0}, cfg, 0)
	r.compensate(cfg)
}

func TestRenderRelativeE(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)
	cfg := Config{ConnectWalls: true}
	flatten(r, &cfg)

	got := r.render(&cfg, true, 0)
	want := []string{
		"G1 X0.3000 Y0.0000 E0.25000",
		"G1 X0.6000 Y0.0000 E0.25000",
		"G1 X0.9000 Y0.0000 E0.25000",
		"G1 X1.2000 Y0.0000 E0.25000",
		"; G1 X1.2 Y0 E1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEmitsZOnlyOnChange(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)
	cfg := Config{ConnectWalls: true}
	flatten(r, &cfg)

	r.verts[1].z = 0.2

	got := r.render(&cfg, true, 0)
	want := []string{
		"G1 X0.3000 Y0.0000 Z0.2000 E0.25000",
		"G1 X0.6000 Y0.0000 Z0.0000 E0.25000",
		"G1 X0.9000 Y0.0000 E0.25000",
		"G1 X1.2000 Y0.0000 E0.25000",
		"; G1 X1.2 Y0 E1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderLiftsDisplacedFirstVertex(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X0.6 Y0 E1")
	r.subdivide(0.3)
	cfg := Config{}
	flatten(r, &cfg)

	r.verts[0].z = 0.25

	got := r.render(&cfg, true, 0)
	assert.Equal(t, "G1 Z0.2500", got[0], "run must open with a lift to the displaced start")
}

func TestRenderFuzzySpeedBracketsRun(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X0.6 Y0 E1")
	r.subdivide(0.3)
	cfg := Config{ConnectWalls: true, FuzzySpeed: 9000}
	flatten(r, &cfg)

	got := r.render(&cfg, true, 1500)
	assert.Equal(t, "G1 F9000", got[0])
	assert.Equal(t, "G1 F1500", got[len(got)-1])
}

func TestRenderAbsoluteE(t *testing.T) {
	st := &gcode.State{}
	r := runFrom(t, st, SurfaceTop, "G1 X1.2 Y0 E1")
	r.subdivide(0.3)
	cfg := Config{ConnectWalls: true}
	flatten(r, &cfg)

	t.Run("running total, no resync when totals agree", func(t *testing.T) {
		got := r.render(&cfg, false, 0)
		want := []string{
			"G1 X0.3000 Y0.0000 E0.25000",
			"G1 X0.6000 Y0.0000 E0.50000",
			"G1 X0.9000 Y0.0000 E0.75000",
			"G1 X1.2000 Y0.0000 E1.00000",
			"; G1 X1.2 Y0 E1",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("render mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("G92 resync after a compensated total", func(t *testing.T) {
		for i := range r.segs {
			r.segs[i].e = 0.3
		}
		got := r.render(&cfg, false, 0)
		assert.Equal(t, "G92 E1.00000", got[len(got)-1],
			"compensation moved the total from 1.0 to 1.2, the logical extruder must realign")
	})
}

func TestRenderCommentsEachSourceMove(t *testing.T) {
	r := applyMoves(t, SurfaceTop,
		"G1 X0.6 Y0 E0.5",
		"G1 X0.6 Y0.6 E0.5",
	)
	r.subdivide(0.3)
	cfg := Config{ConnectWalls: true}
	flatten(r, &cfg)

	got := r.render(&cfg, true, 0)
	var comments []string
	for _, l := range got {
		if l[0] == ';' {
			comments = append(comments, l)
		}
	}
	want := []string{"; G1 X0.6 Y0 E0.5", "; G1 X0.6 Y0.6 E0.5"}
	if diff := cmp.Diff(want, comments); diff != "" {
		t.Errorf("source comments mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderRaw(t *testing.T) {
	r := applyMoves(t, SurfaceTop, "G1 X0.1 Y0 E0.1")

	t.Run("plain passthrough", func(t *testing.T) {
		cfg := Config{}
		got := r.renderRaw(&cfg, 1500)
		assert.Equal(t, []string{"G1 X0.1 Y0 E0.1"}, got)
	})

	t.Run("fuzzy feed still brackets short runs", func(t *testing.T) {
		cfg := Config{FuzzySpeed: 9000}
		got := r.renderRaw(&cfg, 1500)
		assert.Equal(t, []string{"G1 F9000", "G1 X0.1 Y0 E0.1", "G1 F1500"}, got)
	})
}
