package dialect

import (
	"strconv"
	"strings"
)

// Settings holds profile values recovered from the settings block the
// slicers append to the end of a file. Nil fields were absent or
// unparseable.
type Settings struct {
	FuzzySkin      *bool    // fuzzy skin enabled with a qualifying scope
	PointDist      *float64 // profile fuzzy-skin point distance (mm)
	Thickness      *float64 // profile fuzzy-skin thickness (mm)
	SupportContact *float64 // support interface contact distance (mm)
}

// ScanSettings recovers profile values. Scans run back to front: the
// settings block lives at the tail, and the last occurrence of a key is the
// authoritative one. The point-distance and thickness keys are only
// consulted when the profile enables fuzzy skin, matching how the slicers
// emit them.
func (d Dialect) ScanSettings(lines []string) Settings {
	t := tables[d]
	var s Settings

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], t.fuzzySkin) {
			enabled := false
			v := strings.ToLower(valueAfterEquals(lines[i]))
			for _, want := range t.fuzzyValues {
				if v == want {
					enabled = true
					break
				}
			}
			s.FuzzySkin = &enabled
			break
		}
	}

	if s.FuzzySkin != nil && *s.FuzzySkin {
		for i := len(lines) - 1; i >= 0; i-- {
			switch {
			case s.PointDist == nil && strings.HasPrefix(lines[i], t.pointDist):
				s.PointDist = parseValue(lines[i])
			case s.Thickness == nil && strings.HasPrefix(lines[i], t.thickness):
				s.Thickness = parseValue(lines[i])
			}
			if s.PointDist != nil && s.Thickness != nil {
				break
			}
		}
	}

	// Support contact distance matters for overhang clearance whether or
	// not the profile enables fuzzy skin.
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], t.supportContact) {
			s.SupportContact = parseValue(lines[i])
			break
		}
	}

	return s
}

func parseValue(line string) *float64 {
	v, err := strconv.ParseFloat(valueAfterEquals(line), 64)
	if err != nil {
		return nil
	}
	return &v
}
