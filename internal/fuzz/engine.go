// Package fuzz rewrites sliced G-code so selected surfaces come out with a
// fuzzy-skin texture: qualifying extrusion runs are subdivided, each
// subdivision vertex is pushed out of the layer plane by a displacement
// field, and extrusion is re-scaled to the true path length. Everything the
// transform does not own is reproduced byte for byte.
package fuzz

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/printforge/fuzzyskin/internal/dialect"
	"github.com/printforge/fuzzyskin/internal/dispmap"
	"github.com/printforge/fuzzyskin/internal/gcode"
	"github.com/printforge/fuzzyskin/internal/paint"
)

// processedStamp marks output this tool already transformed. A file carrying
// it passes through untouched so an accidental second pass cannot stack
// displacement on displacement.
const processedStamp = "; fuzzyskin: applied"

// Stats summarizes one processing pass.
type Stats struct {
	Lines        int
	Runs         int // runs subdivided and displaced
	ShortRuns    int // qualifying runs below resolution, passed through
	ExcludedRuns int // bottom runs skipped for support clearance
	Moves        int // source moves rewritten
	Segments     int // sub-segments emitted
	Displaced    int // vertices moved off the surface plane

	Enabled          bool
	AlreadyProcessed bool
}

// Engine rewrites one G-code file. New loads the displacement resources the
// configuration names; Process then consumes them for exactly one file, so
// an Engine is single use.
type Engine struct {
	cfg  Config
	log  logrus.FieldLogger
	rng  *rand.Rand
	dmap *dispmap.Map
	mask *paint.Mask

	field Field
	sec   *sections
	state gcode.State
	cur   *run
	out   []string
	stats Stats
}

// New builds an engine for the resolved configuration. A nil logger falls
// back to the logrus standard logger.
func New(cfg Config, log logrus.FieldLogger) (*Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}

	switch cfg.Mode {
	case ModeMap:
		m, err := dispmap.Load(cfg.DisplacementMap)
		if err != nil {
			return nil, fmt.Errorf("loading displacement map: %w", err)
		}
		e.dmap = m
	case ModePaint:
		f, err := paint.Load(cfg.Strokes)
		if err != nil {
			return nil, fmt.Errorf("loading strokes: %w", err)
		}
		mask, err := paint.BuildMask(f, cfg.XYThickness, cfg.XYPointDist)
		if err != nil {
			return nil, fmt.Errorf("building stroke mask: %w", err)
		}
		e.mask = mask
	}
	return e, nil
}

// Process transforms the lines of one file and returns the output lines.
// When fuzzy skin is disabled, or the file already carries the processed
// stamp, the input comes back unchanged.
func (e *Engine) Process(lines []string) ([]string, Stats, error) {
	e.stats = Stats{Lines: len(lines), Enabled: e.cfg.Run}

	if !e.cfg.Run {
		e.log.Info("fuzzy skin disabled, file passes through")
		return lines, e.stats, nil
	}
	if alreadyProcessed(lines) {
		e.stats.AlreadyProcessed = true
		e.log.Warn("file already carries a fuzzyskin stamp, file passes through")
		return lines, e.stats, nil
	}

	if err := e.buildField(lines); err != nil {
		return nil, e.stats, err
	}

	e.sec = newSections(&e.cfg)
	e.out = make([]string, 0, len(lines)+len(lines)/4)

	for i, text := range lines {
		l, err := gcode.Parse(text, i+1)
		if err != nil {
			return nil, e.stats, err
		}
		e.consume(l)
	}
	e.flush(e.state.Feed, e.state.Pos.Z, e.state.RelativeE)

	if e.stats.Segments > 0 {
		e.out = append(e.out, e.stamp())
	}
	e.log.WithFields(logrus.Fields{
		"runs":      e.stats.Runs,
		"moves":     e.stats.Moves,
		"segments":  e.stats.Segments,
		"displaced": e.stats.Displaced,
	}).Info("fuzzy skin applied")
	return e.out, e.stats, nil
}

// buildField assembles the displacement field. Map mode first measures the
// planar extent of the print so the map can stretch across it.
func (e *Engine) buildField(lines []string) error {
	switch e.cfg.Mode {
	case ModePaint:
		e.field = newPaintField(e.mask, e.rng, e.cfg.ZMin, e.cfg.ZMax)
	case ModeMap:
		b, err := printBounds(lines)
		if err != nil {
			return err
		}
		e.field = newMapField(e.dmap, e.cfg.ZMin, e.cfg.ZMax, b)
	default:
		e.field = newRandomField(e.rng, e.cfg.ZMin, e.cfg.ZMax)
	}
	return nil
}

// consume routes one parsed line: comments feed the section tracker,
// qualifying motion extends the current run, and everything else flushes
// the run and passes through.
func (e *Engine) consume(l gcode.Line) {
	if l.Kind == gcode.KindComment {
		e.flush(e.state.Feed, e.state.Pos.Z, e.state.RelativeE)
		e.sec.observe(l.Raw)
		e.out = append(e.out, l.Raw)
		return
	}

	// The flush below must see the modal state as of the end of the
	// buffered run, not after this line applies: an M82 or M83 here
	// postdates the buffered moves.
	feed, plane, relE := e.state.Feed, e.state.Pos.Z, e.state.RelativeE
	mo, moved := e.state.Apply(&l)

	surface, ok := e.qualify(&l, mo, moved)
	if !ok {
		e.flush(feed, plane, relE)
		e.out = append(e.out, l.Raw)
		return
	}
	if e.cur != nil && e.cur.surface != surface {
		e.flush(feed, plane, relE)
	}
	if e.cur == nil {
		e.cur = newRun(surface)
	}
	e.cur.add(l, mo)
}

// qualify decides whether a line joins a run and under which surface class.
// Only clean planar extrusion moves in absolute motion mode qualify: the
// move must carry X, Y and a positive extrusion delta, no Z word, and
// actually cover planar distance.
func (e *Engine) qualify(l *gcode.Line, mo gcode.Motion, moved bool) (Surface, bool) {
	if l.Kind != gcode.KindMotion || !moved || e.state.RelativeMotion {
		return SurfaceNone, false
	}
	m := &l.Move
	if !m.HasX || !m.HasY || m.HasZ || !m.HasE || mo.DeltaE <= 0 {
		return SurfaceNone, false
	}
	from, to := planar(mo.From), planar(mo.To)
	if r2.Norm(r2.Sub(to, from)) == 0 {
		return SurfaceNone, false
	}

	if e.cfg.Mode == ModePaint {
		if e.mask.Intersects(from, to) {
			return SurfacePainted, true
		}
		return SurfaceNone, false
	}
	if s := e.sec.surface; s != SurfaceNone {
		return s, true
	}
	return SurfaceNone, false
}

// flush transforms and emits the buffered run, if any. restoreFeed, plane
// and relativeE are the feed rate, layer height and extrusion mode as of
// the run's last move.
func (e *Engine) flush(restoreFeed, plane float64, relativeE bool) {
	r := e.cur
	e.cur = nil
	if r == nil {
		return
	}

	if r.surface == SurfaceBottom && e.cfg.SupportContact < e.cfg.MinSupportDistance {
		e.stats.ExcludedRuns++
		e.log.WithFields(logrus.Fields{
			"moves":     len(r.moves),
			"clearance": e.cfg.SupportContact,
		}).Debug("bottom run too close to supports, passing through")
		for _, mv := range r.moves {
			e.out = append(e.out, mv.line.Raw)
		}
		return
	}

	if r.planar < e.cfg.Resolution {
		e.stats.ShortRuns++
		e.out = append(e.out, r.renderRaw(&e.cfg, restoreFeed)...)
		return
	}

	r.subdivide(e.cfg.Resolution)
	e.stats.Displaced += r.applyField(e.field, &e.cfg, plane)
	r.compensate(&e.cfg)
	e.out = append(e.out, r.render(&e.cfg, relativeE, restoreFeed)...)

	e.stats.Runs++
	e.stats.Moves += len(r.moves)
	e.stats.Segments += len(r.segs)
}

func (e *Engine) stamp() string {
	return fmt.Sprintf("%s mode=%s resolution=%s zmin=%s zmax=%s",
		processedStamp, e.cfg.Mode,
		gcode.FormatFloat(e.cfg.Resolution, -1),
		gcode.FormatFloat(e.cfg.ZMin, -1),
		gcode.FormatFloat(e.cfg.ZMax, -1))
}

func alreadyProcessed(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, processedStamp) {
			return true
		}
	}
	return false
}

// printBounds measures the planar extent of all extruding moves.
func printBounds(lines []string) (bounds, error) {
	b := newBounds()
	var st gcode.State

	for i, text := range lines {
		l, err := gcode.Parse(text, i+1)
		if err != nil {
			return b, err
		}
		mo, moved := st.Apply(&l)
		if !moved || !mo.HasE || mo.DeltaE <= 0 {
			continue
		}
		b.extend(mo.From.X, mo.From.Y)
		b.extend(mo.To.X, mo.To.Y)
	}

	if !b.valid() {
		return b, &ConfigError{Field: "displacementMap", Reason: "file has no extruding moves to span the map over"}
	}
	return b, nil
}

// Process runs the whole pipeline on one file: detect the slicer dialect,
// recover profile settings, resolve the configuration, then transform.
func Process(lines []string, opts Options, log logrus.FieldLogger) ([]string, Stats, error) {
	d := dialect.Detect(lines)
	cfg, err := opts.Resolve(d, d.ScanSettings(lines))
	if err != nil {
		return nil, Stats{Lines: len(lines)}, err
	}
	eng, err := New(cfg, log)
	if err != nil {
		return nil, Stats{Lines: len(lines)}, err
	}
	return eng.Process(lines)
}
