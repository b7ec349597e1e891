package gcode

// Position is an absolute machine position.
type Position struct {
	X, Y, Z float64
}

// Motion is one applied motion line with its endpoints resolved against the
// modal state. DeltaE is the filament deposited by the move under the
// extrusion mode active when it was applied, so callers never need to know
// whether the stream runs M82 or M83.
type Motion struct {
	From, To Position
	DeltaE   float64 // deposited filament, signed
	TargetE  float64 // logical E axis value after the move (absolute-mode bookkeeping)
	Feed     float64 // feed rate in effect after the move
	HasZ     bool    // the source line carried a Z word
	HasE     bool
	HasF     bool
}

// State tracks the printer's modal state across lines: current position,
// logical extruder axis, feed rate, and the absolute/relative modes for
// motion (G90/G91) and extrusion (M82/M83).
type State struct {
	Pos            Position
	E              float64 // logical extruder axis position
	Feed           float64
	RelativeMotion bool // G91 active
	RelativeE      bool // M83 active
}

// Apply advances the state by one line and reports the resolved motion. The
// second return is true only for position-affecting commands (G0/G1/G2/G3);
// mode switches and G92 resets update state silently.
func (s *State) Apply(l *Line) (Motion, bool) {
	switch l.Cmd {
	case "G90":
		s.RelativeMotion = false
		return Motion{}, false
	case "G91":
		s.RelativeMotion = true
		return Motion{}, false
	case "M82":
		s.RelativeE = false
		return Motion{}, false
	case "M83":
		s.RelativeE = true
		return Motion{}, false
	case "G92":
		// Logical axis reset, no motion.
		if l.Move.HasX {
			s.Pos.X = l.Move.X
		}
		if l.Move.HasY {
			s.Pos.Y = l.Move.Y
		}
		if l.Move.HasZ {
			s.Pos.Z = l.Move.Z
		}
		if l.Move.HasE {
			s.E = l.Move.E
		}
		return Motion{}, false
	case "G0", "G1", "G2", "G3":
		return s.applyMove(&l.Move), true
	default:
		return Motion{}, false
	}
}

func (s *State) applyMove(m *Move) Motion {
	mo := Motion{From: s.Pos, HasZ: m.HasZ, HasE: m.HasE, HasF: m.HasF}

	to := s.Pos
	if s.RelativeMotion {
		if m.HasX {
			to.X += m.X
		}
		if m.HasY {
			to.Y += m.Y
		}
		if m.HasZ {
			to.Z += m.Z
		}
	} else {
		if m.HasX {
			to.X = m.X
		}
		if m.HasY {
			to.Y = m.Y
		}
		if m.HasZ {
			to.Z = m.Z
		}
	}

	if m.HasE {
		if s.RelativeE {
			mo.DeltaE = m.E
			s.E += m.E
		} else {
			mo.DeltaE = m.E - s.E
			s.E = m.E
		}
	}
	if m.HasF {
		s.Feed = m.F
	}

	s.Pos = to
	mo.To = to
	mo.TargetE = s.E
	mo.Feed = s.Feed
	return mo
}
