package gcode

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func apply(t *testing.T, s *State, text string) (Motion, bool) {
	t.Helper()
	l, err := Parse(text, 0)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return s.Apply(&l)
}

func TestStateCarriesOmittedAxes(t *testing.T) {
	var s State
	apply(t, &s, "G1 X10 Y20 Z0.2 F1800")
	mo, moved := apply(t, &s, "G1 X15")

	if !moved {
		t.Fatal("expected a motion")
	}
	want := Motion{
		From: Position{X: 10, Y: 20, Z: 0.2},
		To:   Position{X: 15, Y: 20, Z: 0.2},
		Feed: 1800,
	}
	if diff := cmp.Diff(mo, want, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("motion mismatch (-got +want):\n%s", diff)
	}
}

func TestStateRelativeExtrusion(t *testing.T) {
	var s State
	apply(t, &s, "M83")
	mo, _ := apply(t, &s, "G1 X1 Y0 E0.5")
	if mo.DeltaE != 0.5 {
		t.Errorf("relative DeltaE = %v, want 0.5", mo.DeltaE)
	}
	mo, _ = apply(t, &s, "G1 X2 Y0 E0.25")
	if mo.DeltaE != 0.25 {
		t.Errorf("relative DeltaE = %v, want 0.25", mo.DeltaE)
	}
	if s.E != 0.75 {
		t.Errorf("logical E = %v, want 0.75", s.E)
	}
}

func TestStateAbsoluteExtrusion(t *testing.T) {
	var s State
	apply(t, &s, "M82")
	apply(t, &s, "G92 E0")
	mo, _ := apply(t, &s, "G1 X1 Y0 E2.0")
	if mo.DeltaE != 2.0 {
		t.Errorf("DeltaE = %v, want 2.0", mo.DeltaE)
	}
	mo, _ = apply(t, &s, "G1 X2 Y0 E2.6")
	if math.Abs(mo.DeltaE-0.6) > 1e-12 {
		t.Errorf("DeltaE = %v, want 0.6", mo.DeltaE)
	}

	// A reset re-bases deltas without motion.
	apply(t, &s, "G92 E0")
	mo, _ = apply(t, &s, "G1 X3 Y0 E0.4")
	if mo.DeltaE != 0.4 {
		t.Errorf("DeltaE after G92 = %v, want 0.4", mo.DeltaE)
	}
}

func TestStateRelativeMotion(t *testing.T) {
	var s State
	apply(t, &s, "G1 X10 Y10")
	apply(t, &s, "G91")
	mo, _ := apply(t, &s, "G1 X5 Y-2")
	want := Position{X: 15, Y: 8}
	if diff := cmp.Diff(mo.To, want); diff != "" {
		t.Errorf("relative target (-got +want):\n%s", diff)
	}
	apply(t, &s, "G90")
	mo, _ = apply(t, &s, "G1 X1 Y1")
	if mo.To.X != 1 || mo.To.Y != 1 {
		t.Errorf("absolute target = %+v, want (1,1)", mo.To)
	}
}

func TestStateArcUpdatesPosition(t *testing.T) {
	var s State
	apply(t, &s, "G1 X0 Y0")
	mo, moved := apply(t, &s, "G2 X10 Y0 I5 J0")
	if !moved {
		t.Fatal("arc should report motion")
	}
	if mo.To.X != 10 || mo.To.Y != 0 {
		t.Errorf("arc endpoint = %+v, want (10,0)", mo.To)
	}
}

func TestStateModeSwitchesReportNoMotion(t *testing.T) {
	var s State
	for _, line := range []string{"M82", "M83", "G90", "G91", "G92 E0", "M106 S255", "; comment"} {
		if _, moved := apply(t, &s, line); moved {
			t.Errorf("%q reported motion", line)
		}
	}
}
