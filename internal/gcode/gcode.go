// Package gcode implements a line-level model of Marlin-flavoured G-code as
// emitted by PrusaSlicer, OrcaSlicer and BambuStudio.
//
// The model is deliberately shallow: a file is a sequence of Lines, each
// keeping its exact source text. Only G0/G1 motion lines are decoded into
// words; everything else (comments, M-codes, arcs, macros) stays opaque so a
// caller can reproduce it byte for byte. Modal printer state (absolute vs
// relative axes, absolute vs relative extrusion, carried-over positions,
// feed rate) is tracked separately by State so that omitted axis words on a
// motion line resolve to the values left behind by earlier lines.
package gcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a source line for downstream handling.
type Kind uint8

const (
	// KindOther marks lines the transform never owns: M-codes, arcs,
	// macros, blank lines, and motion lines carrying words we do not
	// decode. They pass through untouched.
	KindOther Kind = iota
	// KindComment marks lines whose first non-blank byte is ';'. Slicer
	// markers (feature types, layer changes, settings) live here.
	KindComment
	// KindMotion marks clean G0/G1 lines built only from X/Y/Z/E/F words.
	// These are the only lines eligible for rewriting.
	KindMotion
)

// Move holds the decoded words of a motion line. Presence flags distinguish
// an omitted word from an explicit zero.
type Move struct {
	HasX, HasY, HasZ, HasE, HasF bool
	X, Y, Z, E, F                float64
}

// Line is one physical line of the source file.
type Line struct {
	Num  int    // 1-based source line number
	Raw  string // exact text, newline stripped
	Kind Kind
	Cmd  string // normalized command word ("G1", "M83", ...), empty if none
	Move Move   // decoded words for motion-bearing commands
}

// ParseError reports a motion line whose words could not be decoded.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gcode: line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// commands whose axis words we decode for state tracking. Arcs and G92 are
// decoded but stay KindOther: they move or reset state without being
// eligible for rewriting.
var trackedCommands = map[string]bool{
	"G0": true, "G1": true, "G2": true, "G3": true, "G92": true,
}

// Parse decodes one source line. n is the 1-based line number, kept for
// error reporting and diagnostics. The returned Line always carries the
// exact input text; a non-nil error is only returned for motion lines with
// malformed numeric words.
func Parse(text string, n int) (Line, error) {
	l := Line{Num: n, Raw: text}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return l, nil
	}
	if trimmed[0] == ';' {
		l.Kind = KindComment
		return l, nil
	}

	// Words never live past an inline comment.
	code := trimmed
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = strings.TrimSpace(code[:i])
		if code == "" {
			l.Kind = KindComment
			return l, nil
		}
	}

	fields := strings.Fields(code)
	l.Cmd = normalizeCommand(fields[0])
	if !trackedCommands[l.Cmd] {
		return l, nil
	}

	clean := true
	for _, w := range fields[1:] {
		letter := w[0] &^ 0x20 // uppercase
		val, err := strconv.ParseFloat(w[1:], 64)
		if err != nil {
			return l, &ParseError{Line: n, Text: text, Err: fmt.Errorf("bad %c word: %w", letter, err)}
		}
		switch letter {
		case 'X':
			l.Move.HasX, l.Move.X = true, val
		case 'Y':
			l.Move.HasY, l.Move.Y = true, val
		case 'Z':
			l.Move.HasZ, l.Move.Z = true, val
		case 'E':
			l.Move.HasE, l.Move.E = true, val
		case 'F':
			l.Move.HasF, l.Move.F = true, val
		default:
			// Well-formed but undecoded word (S, I, J, ...). The line
			// still updates state below but is never rewritten.
			clean = false
		}
	}

	if clean && (l.Cmd == "G0" || l.Cmd == "G1") {
		l.Kind = KindMotion
	}
	return l, nil
}

// normalizeCommand uppercases a command word and strips leading zeros from
// its number so "g01" and "G1" compare equal.
func normalizeCommand(w string) string {
	w = strings.ToUpper(w)
	if len(w) < 2 {
		return w
	}
	letter, num := w[:1], w[1:]
	for len(num) > 1 && num[0] == '0' {
		num = num[1:]
	}
	return letter + num
}

// FormatFloat renders an axis value with a fixed number of decimals, the way
// the slicers themselves write coordinates.
func FormatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
