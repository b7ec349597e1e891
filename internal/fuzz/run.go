package fuzz

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/printforge/fuzzyskin/internal/gcode"
)

// Sub-segment tails shorter than a micron fold into the preceding step:
// coordinates print at four decimals, so a shorter tail would emit a
// duplicate point.
const minTail = 1e-3

// runMove couples a buffered source line with its resolved motion.
type runMove struct {
	line gcode.Line
	mo   gcode.Motion
}

// vertex is one point of a subdivided run. baseZ is the pre-displacement
// height, z the displaced one.
type vertex struct {
	p      r2.Vec
	baseZ  float64
	z      float64
	offset float64
}

// subseg is the stretch of a source move between two consecutive vertices:
// segs[i] connects verts[i] to verts[i+1].
type subseg struct {
	move   int     // index into moves
	planar float64 // planar length (mm)
	baseE  float64 // planar-fraction share of the move's extrusion delta
	e      float64 // emitted extrusion after compensation
}

// run is a maximal contiguous stretch of same-classified extrusion moves
// within one layer.
type run struct {
	surface Surface
	moves   []runMove
	planar  float64 // total planar path length

	verts []vertex
	segs  []subseg
}

func newRun(surface Surface) *run {
	return &run{surface: surface}
}

func (r *run) add(l gcode.Line, mo gcode.Motion) {
	r.moves = append(r.moves, runMove{line: l, mo: mo})
	r.planar += r2.Norm(r2.Sub(planar(mo.To), planar(mo.From)))
}

// startE is the logical extruder value before the run's first move.
func (r *run) startE() float64 {
	first := r.moves[0].mo
	return first.TargetE - first.DeltaE
}

// endE is the logical extruder value the source file reaches after the run.
func (r *run) endE() float64 {
	return r.moves[len(r.moves)-1].mo.TargetE
}

// subdivide builds the vertex chain and sub-segments for the run. Every
// sub-segment's planar length stays at or below resolution; interpolation
// uses absolute fractions of each move so no drift accumulates, and the
// final vertex of a move is its exact endpoint.
func (r *run) subdivide(resolution float64) {
	first := r.moves[0].mo
	r.verts = append(r.verts, vertex{
		p:     planar(first.From),
		baseZ: first.From.Z,
		z:     first.From.Z,
	})

	for mi := range r.moves {
		mo := r.moves[mi].mo
		from, to := planar(mo.From), planar(mo.To)
		seg := r2.Sub(to, from)
		length := r2.Norm(seg)

		prev := 0.0
		for _, t := range fractions(length, resolution) {
			p := r2.Add(from, r2.Scale(t, seg))
			if t == 1 {
				p = to
			}
			baseZ := mo.From.Z + (mo.To.Z-mo.From.Z)*t
			r.verts = append(r.verts, vertex{p: p, baseZ: baseZ, z: baseZ})
			r.segs = append(r.segs, subseg{
				move:   mi,
				planar: (t - prev) * length,
				baseE:  (t - prev) * mo.DeltaE,
			})
			prev = t
		}
	}
}

// fractions returns the interpolation fractions (0,1] that split a move of
// the given planar length into steps of at most resolution. Full steps of
// exactly resolution come first; a meaningful remainder becomes the final
// sub-segment, otherwise the last step absorbs it.
func fractions(length, resolution float64) []float64 {
	if length <= resolution+minTail {
		return []float64{1}
	}

	n := int(length / resolution)
	rem := length - float64(n)*resolution

	ts := make([]float64, 0, n+1)
	for i := 1; i < n; i++ {
		ts = append(ts, float64(i)*resolution/length)
	}
	if rem > minTail {
		ts = append(ts, float64(n)*resolution/length, 1)
	} else {
		ts = append(ts, 1)
	}
	return ts
}

func planar(p gcode.Position) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}
