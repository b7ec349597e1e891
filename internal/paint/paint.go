// Package paint loads painted-region stroke files and answers planar
// hit tests against them.
//
// A strokes file is a small JSON document of polylines painted over the
// part in plate coordinates. Each stroke is resampled at a fixed spacing
// into sample points; a position counts as painted when it lies within the
// stroke's thickness of any sample. Lookups go through a uniform spatial
// hash so whole-file processing stays linear.
package paint

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"
)

// Stroke is one painted polyline. Thickness and Spacing override the
// document-wide values when present.
type Stroke struct {
	Points    [][2]float64 `json:"points"`
	Thickness *float64     `json:"thickness,omitempty"`
	Spacing   *float64     `json:"spacing,omitempty"`
}

// File is a parsed strokes document.
type File struct {
	Strokes []Stroke `json:"strokes"`
}

// Load reads and parses a strokes file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("paint: read strokes: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("paint: parse strokes: %w", err)
	}
	for i, s := range f.Strokes {
		if len(s.Points) == 0 {
			return nil, fmt.Errorf("paint: stroke %d has no points", i)
		}
		if s.Thickness != nil && *s.Thickness <= 0 {
			return nil, fmt.Errorf("paint: stroke %d: thickness must be positive", i)
		}
		if s.Spacing != nil && *s.Spacing <= 0 {
			return nil, fmt.Errorf("paint: stroke %d: spacing must be positive", i)
		}
	}
	return &f, nil
}

// cell addresses one bucket of the spatial hash.
type cell struct{ x, y int }

// Mask is a hit-testable set of stroke samples.
type Mask struct {
	samples []r2.Vec
	radius  []float64

	grid     map[cell][]int
	cellSize float64

	minX, minY float64
	maxX, maxY float64
}

// BuildMask resamples the strokes of f at their spacing and indexes the
// samples. thickness and spacing supply the values for strokes that carry
// no overrides.
func BuildMask(f *File, thickness, spacing float64) (*Mask, error) {
	if thickness <= 0 {
		return nil, fmt.Errorf("paint: thickness must be positive, got %v", thickness)
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("paint: spacing must be positive, got %v", spacing)
	}

	m := &Mask{
		grid: make(map[cell][]int),
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}

	maxRadius := thickness
	for _, s := range f.Strokes {
		r := thickness
		if s.Thickness != nil {
			r = *s.Thickness
		}
		if r > maxRadius {
			maxRadius = r
		}
		step := spacing
		if s.Spacing != nil {
			step = *s.Spacing
		}
		m.addStroke(s.Points, r, step)
	}
	if len(m.samples) == 0 {
		return nil, fmt.Errorf("paint: no strokes to index")
	}

	// One cell spans the largest reach, so a hit test only ever probes
	// the 3x3 neighborhood of the query cell.
	m.cellSize = maxRadius
	for i, p := range m.samples {
		c := m.cellOf(p)
		m.grid[c] = append(m.grid[c], i)
	}
	return m, nil
}

// addStroke walks the polyline emitting samples every step of arc length,
// endpoints included.
func (m *Mask) addStroke(points [][2]float64, radius, step float64) {
	prev := r2.Vec{X: points[0][0], Y: points[0][1]}
	m.addSample(prev, radius)

	for _, raw := range points[1:] {
		next := r2.Vec{X: raw[0], Y: raw[1]}
		seg := r2.Sub(next, prev)
		length := r2.Norm(seg)
		for d := step; d < length; d += step {
			m.addSample(r2.Add(prev, r2.Scale(d/length, seg)), radius)
		}
		if length > 0 {
			m.addSample(next, radius)
		}
		prev = next
	}
}

func (m *Mask) addSample(p r2.Vec, radius float64) {
	m.samples = append(m.samples, p)
	m.radius = append(m.radius, radius)
	m.minX = math.Min(m.minX, p.X-radius)
	m.minY = math.Min(m.minY, p.Y-radius)
	m.maxX = math.Max(m.maxX, p.X+radius)
	m.maxY = math.Max(m.maxY, p.Y+radius)
}

func (m *Mask) cellOf(p r2.Vec) cell {
	return cell{
		x: int(math.Floor(p.X / m.cellSize)),
		y: int(math.Floor(p.Y / m.cellSize)),
	}
}

// Covers reports whether p lies within reach of any stroke sample.
func (m *Mask) Covers(p r2.Vec) bool {
	c := m.cellOf(p)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, i := range m.grid[cell{c.x + dx, c.y + dy}] {
				d := r2.Sub(p, m.samples[i])
				if r2.Norm2(d) <= m.radius[i]*m.radius[i] {
					return true
				}
			}
		}
	}
	return false
}

// Intersects reports whether the segment a-b touches the mask's grown
// bounding box. It is a cheap conservative pre-filter for Covers: false
// means no point of the segment can be painted.
func (m *Mask) Intersects(a, b r2.Vec) bool {
	tmin, tmax := 0.0, 1.0
	if !clipAxis(a.X, b.X-a.X, m.minX, m.maxX, &tmin, &tmax) {
		return false
	}
	if !clipAxis(a.Y, b.Y-a.Y, m.minY, m.maxY, &tmin, &tmax) {
		return false
	}
	return true
}

// clipAxis narrows the segment parameter interval [tmin,tmax] to the
// [lo,hi] slab on one axis, reporting false when the interval empties.
func clipAxis(origin, dir, lo, hi float64, tmin, tmax *float64) bool {
	if dir == 0 {
		return origin >= lo && origin <= hi
	}
	t0 := (lo - origin) / dir
	t1 := (hi - origin) / dir
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	*tmin = math.Max(*tmin, t0)
	*tmax = math.Min(*tmax, t1)
	return *tmin <= *tmax
}
