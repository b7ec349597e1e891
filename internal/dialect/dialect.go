// Package dialect maps the comment vocabularies of PrusaSlicer, OrcaSlicer
// and BambuStudio onto one internal marker taxonomy.
//
// Each slicer announces feature types, layer changes and profile settings
// through its own comment prefixes. Everything downstream of this package
// works in terms of Marker and Settings only; the per-slicer strings never
// leak out.
package dialect

import "strings"

// Dialect identifies the slicer that produced a G-code file.
type Dialect string

const (
	PrusaSlicer Dialect = "prusaslicer"
	OrcaSlicer  Dialect = "orcaslicer"
	BambuStudio Dialect = "bambustudio"
)

// Marker is the normalized meaning of a slicer comment line.
type Marker string

const (
	// MarkerNone: the line carries no recognized marker.
	MarkerNone Marker = ""
	// MarkerLayerChange: a new layer begins.
	MarkerLayerChange Marker = "layer"
	// MarkerTop: top solid skin follows.
	MarkerTop Marker = "top"
	// MarkerBridge: bridge infill follows.
	MarkerBridge Marker = "bridge"
	// MarkerOverhang: an overhang perimeter follows.
	MarkerOverhang Marker = "overhang"
	// MarkerExternal: an external perimeter follows.
	MarkerExternal Marker = "external"
	// MarkerOtherType: a feature-type announcement we do not single out.
	MarkerOtherType Marker = "type"
)

// Slicers identify themselves within the first few lines of the file.
const detectWindow = 10

// table holds the comment prefixes one slicer emits. Matching is done with
// HasPrefix so trailing text (values, speeds) never interferes.
type table struct {
	top        string
	typePrefix string
	layer      string
	bridge     string
	overhang   string
	external   string

	fuzzySkin      string
	fuzzyValues    []string
	pointDist      string
	thickness      string
	supportContact string
}

var tables = map[Dialect]table{
	PrusaSlicer: {
		top:        ";TYPE:Top solid infill",
		typePrefix: ";TYPE:",
		layer:      ";LAYER_CHANGE",
		bridge:     ";TYPE:Bridge infill",
		overhang:   ";TYPE:Overhang perimeter",
		external:   ";TYPE:External perimeter",

		fuzzySkin:      "; fuzzy_skin =",
		fuzzyValues:    []string{"external", "all"},
		pointDist:      "; fuzzy_skin_point_dist =",
		thickness:      "; fuzzy_skin_thickness =",
		supportContact: "; support_material_contact_distance",
	},
	OrcaSlicer: {
		top:        ";TYPE:Top surface",
		typePrefix: ";TYPE:",
		layer:      ";LAYER_CHANGE",
		bridge:     ";TYPE:Bridge",
		overhang:   ";TYPE:Overhang wall",
		external:   ";TYPE:Outer wall",

		fuzzySkin:      "; fuzzy_skin =",
		fuzzyValues:    []string{"allwalls", "external", "all"},
		pointDist:      "; fuzzy_skin_point_distance =",
		thickness:      "; fuzzy_skin_thickness =",
		supportContact: "; support_bottom_z_distance",
	},
	BambuStudio: {
		top:        "; FEATURE: Top surface",
		typePrefix: "; FEATURE:",
		layer:      "; CHANGE_LAYER",
		bridge:     "; FEATURE: Bridge",
		overhang:   "; FEATURE: Overhang wall",
		external:   "; FEATURE: Outer wall",

		fuzzySkin:      "; fuzzy_skin =",
		fuzzyValues:    []string{"allwalls", "external", "all"},
		pointDist:      "; fuzzy_skin_point_dist =",
		thickness:      "; fuzzy_skin_thickness =",
		supportContact: "; support_top_z_distance",
	},
}

// Detect identifies the producing slicer. The slicer name sits in the first
// few lines; OrcaSlicer configured for the Marlin flavor writes
// BambuStudio-style feature comments, so that combination remaps. Files with
// no recognizable banner fall back to PrusaSlicer.
func Detect(lines []string) Dialect {
	d, ok := detectName(lines)
	if !ok {
		return PrusaSlicer
	}
	if d == OrcaSlicer && flavor(lines) == "marlin" {
		return BambuStudio
	}
	return d
}

func detectName(lines []string) (Dialect, bool) {
	for i, line := range lines {
		if i >= detectWindow {
			break
		}
		switch {
		case strings.Contains(line, "PrusaSlicer"):
			return PrusaSlicer, true
		case strings.Contains(line, "OrcaSlicer"):
			return OrcaSlicer, true
		case strings.Contains(line, "BambuStudio"):
			return BambuStudio, true
		}
	}
	return "", false
}

// flavor returns the value of the "; gcode_flavor =" profile line, if any.
func flavor(lines []string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, "; gcode_flavor =") {
			return valueAfterEquals(line)
		}
	}
	return ""
}

// Classify reports the marker carried by a line, or MarkerNone. Specific
// feature markers are checked before the generic type prefix.
func (d Dialect) Classify(line string) Marker {
	t := tables[d]
	switch {
	case strings.HasPrefix(line, t.layer):
		return MarkerLayerChange
	case strings.HasPrefix(line, t.top):
		return MarkerTop
	case strings.HasPrefix(line, t.bridge):
		return MarkerBridge
	case strings.HasPrefix(line, t.overhang):
		return MarkerOverhang
	case strings.HasPrefix(line, t.external):
		return MarkerExternal
	case strings.HasPrefix(line, t.typePrefix):
		return MarkerOtherType
	default:
		return MarkerNone
	}
}

func valueAfterEquals(line string) string {
	i := strings.LastIndexByte(line, '=')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i+1:])
}
