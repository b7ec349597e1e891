package fuzz

import (
	"math"
	"strings"

	"github.com/printforge/fuzzyskin/internal/gcode"
)

// Output precision. Axis words match the four decimals the slicers write;
// extrusion gets one more because sub-segment deltas are small.
const (
	axisPrec = 4
	ePrec    = 5
)

// render turns a subdivided, displaced, compensated run into output lines.
//
// Each sub-segment becomes one G1 with X and Y always present, Z only when
// it changes, and E in the file's own extrusion mode (per-segment delta when
// relative, running total when absolute). Every consumed source line is kept
// as a comment after its final sub-segment so the original toolpath stays
// readable in the output.
//
// When a fuzzy feed is configured it brackets the run: one feed move before
// the first sub-segment and one restoring the tracked feed after the last.
// Otherwise a source move's own F word is re-emitted on its first
// sub-segment. A displaced first vertex (connectWalls off) becomes a plain
// Z lift ahead of the first sub-segment. In absolute mode a trailing G92
// realigns the logical extruder with the source file whenever compensation
// changed the total.
func (r *run) render(cfg *Config, relativeE bool, restoreFeed float64) []string {
	out := make([]string, 0, len(r.segs)+len(r.moves)+3)

	if cfg.FuzzySpeed > 0 {
		out = append(out, "G1 F"+gcode.FormatFloat(cfg.FuzzySpeed, -1))
	}
	if v0 := r.verts[0]; v0.z != v0.baseZ {
		out = append(out, "G1 Z"+gcode.FormatFloat(v0.z, axisPrec))
	}

	prevZ := r.verts[0].z
	absE := r.startE()
	lastMove := -1

	for i, s := range r.segs {
		v := r.verts[i+1]
		mv := r.moves[s.move]

		var b strings.Builder
		b.WriteString("G1 X")
		b.WriteString(gcode.FormatFloat(v.p.X, axisPrec))
		b.WriteString(" Y")
		b.WriteString(gcode.FormatFloat(v.p.Y, axisPrec))
		if v.z != prevZ {
			b.WriteString(" Z")
			b.WriteString(gcode.FormatFloat(v.z, axisPrec))
			prevZ = v.z
		}
		b.WriteString(" E")
		if relativeE {
			b.WriteString(gcode.FormatFloat(s.e, ePrec))
		} else {
			absE += s.e
			b.WriteString(gcode.FormatFloat(absE, ePrec))
		}
		if s.move != lastMove && cfg.FuzzySpeed == 0 && mv.line.Move.HasF {
			b.WriteString(" F")
			b.WriteString(gcode.FormatFloat(mv.line.Move.F, -1))
		}
		lastMove = s.move
		out = append(out, b.String())

		if i+1 == len(r.segs) || r.segs[i+1].move != s.move {
			out = append(out, "; "+mv.line.Raw)
		}
	}

	if !relativeE && math.Abs(absE-r.endE()) > 1e-9 {
		out = append(out, "G92 E"+gcode.FormatFloat(r.endE(), ePrec))
	}
	if cfg.FuzzySpeed > 0 && restoreFeed > 0 {
		out = append(out, "G1 F"+gcode.FormatFloat(restoreFeed, -1))
	}
	return out
}

// renderRaw emits the run's source lines untouched. Runs shorter than the
// resolution take this path; they still get the fuzzy feed bracket so speed
// stays consistent across a fuzzed surface.
func (r *run) renderRaw(cfg *Config, restoreFeed float64) []string {
	out := make([]string, 0, len(r.moves)+2)
	if cfg.FuzzySpeed > 0 {
		out = append(out, "G1 F"+gcode.FormatFloat(cfg.FuzzySpeed, -1))
	}
	for _, mv := range r.moves {
		out = append(out, mv.line.Raw)
	}
	if cfg.FuzzySpeed > 0 && restoreFeed > 0 {
		out = append(out, "G1 F"+gcode.FormatFloat(restoreFeed, -1))
	}
	return out
}
