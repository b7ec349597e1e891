package fuzz

import "github.com/printforge/fuzzyskin/internal/dialect"

// Surface is the classification of a contiguous stretch of extrusion moves.
type Surface string

const (
	// SurfaceNone marks motion the transform leaves alone.
	SurfaceNone Surface = "none"
	// SurfaceTop marks top solid skin.
	SurfaceTop Surface = "top"
	// SurfaceBottom marks downward-facing skin: bridge infill and
	// overhang perimeters.
	SurfaceBottom Surface = "bottom"
	// SurfacePainted marks motion inside user-painted strokes.
	SurfacePainted Surface = "painted"
)

// sections tracks the marker-driven feature state across a file: which
// surface the slicer is currently printing, whether the running layer has
// produced an overhang, and the current layer index.
//
// Bridge infill only counts as a bottom surface in layers that carry an
// overhang: bridge moves over sparse infill are internal and fuzzing them
// would be invisible (and waste time).
type sections struct {
	cfg *Config

	surface         Surface
	overhangInLayer bool
	layer           int
}

func newSections(cfg *Config) *sections {
	return &sections{cfg: cfg, surface: SurfaceNone}
}

// observe updates the tracker from one comment line and reports whether the
// line was a recognized marker.
func (s *sections) observe(line string) bool {
	switch s.cfg.Dialect.Classify(line) {
	case dialect.MarkerLayerChange:
		s.layer++
		s.overhangInLayer = false
		s.surface = SurfaceNone
	case dialect.MarkerTop:
		s.surface = SurfaceNone
		if s.cfg.TopSurface {
			s.surface = SurfaceTop
		}
	case dialect.MarkerOverhang:
		s.overhangInLayer = true
		s.surface = SurfaceNone
		if s.cfg.LowerSurface {
			s.surface = SurfaceBottom
		}
	case dialect.MarkerBridge:
		s.surface = SurfaceNone
		if s.cfg.LowerSurface && s.overhangInLayer {
			s.surface = SurfaceBottom
		}
	case dialect.MarkerExternal, dialect.MarkerOtherType:
		s.surface = SurfaceNone
	default:
		return false
	}
	return true
}
