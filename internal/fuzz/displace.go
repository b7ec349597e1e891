package fuzz

import "math"

// applyField assigns a Z offset to every vertex of a subdivided run and
// returns how many vertices ended up off the surface plane.
//
// With connectWalls the first vertex keeps offset zero, so a fuzzed loop
// closes onto the wall it started from without a seam; without it the
// first vertex takes a field offset like any other and the emitter lifts
// the nozzle there before extrusion resumes. In random mode the final
// vertex stays on the plane so the run hands over to the next feature
// cleanly. Painted and mapped modes keep their field value on the final
// vertex.
//
// Vertices of non-bridging runs never dip below the layer plane: offsets
// that would push z under layerZ are clamped back to it. Bridging runs may
// sag freely, there is nothing beneath them.
func (r *run) applyField(f Field, cfg *Config, layerZ float64) int {
	displaced := 0
	last := len(r.verts) - 1

	for i := range r.verts {
		v := &r.verts[i]

		switch {
		case i == 0 && cfg.ConnectWalls:
			v.offset = 0
		case i == last && cfg.Mode == ModeRandom:
			v.offset = 0
		default:
			v.offset = f.Offset(v.p, r.surface)
		}

		v.z = v.baseZ + v.offset
		if r.surface != SurfaceBottom && v.z < layerZ {
			v.z = layerZ
			v.offset = v.z - v.baseZ
		}
		if v.offset != 0 {
			displaced++
		}
	}
	return displaced
}

// compensate scales each sub-segment's extrusion so the deposited volume
// matches the true three-dimensional path length instead of the planar
// one. On bridging runs the surplus is further multiplied to compensate
// for the material sagging into free air.
func (r *run) compensate(cfg *Config) {
	for i := range r.segs {
		s := &r.segs[i]
		s.e = s.baseE
		if !cfg.CompensateExtrusion || s.planar == 0 {
			continue
		}

		dz := r.verts[i+1].z - r.verts[i].z
		if dz == 0 {
			continue
		}

		trueLen := math.Sqrt(s.planar*s.planar + dz*dz)
		delta := s.baseE * (trueLen - s.planar) / s.planar
		if r.surface == SurfaceBottom {
			delta *= cfg.BridgeCompensationMultiplier
		}
		s.e = s.baseE + delta
	}
}
