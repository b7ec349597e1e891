// Command fuzzprofile plots the Z profile of one layer of a G-code file
// before and after fuzzy-skin processing: path distance on the X axis,
// nozzle height on the Y axis. The picture makes displacement bounds,
// connectWalls seams and layer-plane clamping visible at a glance.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/printforge/fuzzyskin/internal/dialect"
	"github.com/printforge/fuzzyskin/internal/fsutil"
	"github.com/printforge/fuzzyskin/internal/fuzz"
	"github.com/printforge/fuzzyskin/internal/gcode"
)

var (
	inPath  = flag.String("in", "", "G-code file to profile (required)")
	outPath = flag.String("out", "fuzzprofile.png", "Output PNG")
	layer   = flag.Int("layer", -1, "Layer index to profile (-1 = last layer)")

	zMin = flag.Float64("zmin", fuzz.DefaultZMin, "Lower displacement bound (mm)")
	zMax = flag.Float64("zmax", fuzz.DefaultZMax, "Upper displacement bound (mm)")
	seed = flag.Int64("seed", 1, "Random seed, fixed so reruns are comparable")
)

// layerProfile walks one file and collects the extrusion path of the chosen
// layer as (cumulative planar distance, Z) points.
func layerProfile(d dialect.Dialect, lines []string, want int) (plotter.XYs, error) {
	var (
		pts      plotter.XYs
		st       gcode.State
		cur      = -1
		distance float64
	)

	for i, text := range lines {
		l, err := gcode.Parse(text, i+1)
		if err != nil {
			return nil, err
		}
		if l.Kind == gcode.KindComment && d.Classify(l.Raw) == dialect.MarkerLayerChange {
			cur++
			continue
		}
		mo, moved := st.Apply(&l)
		if !moved || cur != want || !mo.HasE || mo.DeltaE <= 0 {
			continue
		}
		if len(pts) == 0 {
			pts = append(pts, plotter.XY{X: 0, Y: mo.From.Z})
		}
		distance += math.Hypot(mo.To.X-mo.From.X, mo.To.Y-mo.From.Y)
		pts = append(pts, plotter.XY{X: distance, Y: mo.To.Z})
	}
	return pts, nil
}

func countLayers(d dialect.Dialect, lines []string) int {
	n := 0
	for _, l := range lines {
		if d.Classify(l) == dialect.MarkerLayerChange {
			n++
		}
	}
	return n
}

func main() {
	flag.Parse()
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "fuzzprofile: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	doc, err := fsutil.ReadLines(*inPath)
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}
	d := dialect.Detect(doc.Lines)

	target := *layer
	if target < 0 {
		target = countLayers(d, doc.Lines) - 1
	}

	fuzzed, _, err := fuzz.Process(doc.Lines, fuzz.Options{
		Run:  boolPtr(true),
		ZMin: zMin, ZMax: zMax,
		Seed: seed,
	}, nil)
	if err != nil {
		log.Fatalf("processing: %v", err)
	}

	before, err := layerProfile(d, doc.Lines, target)
	if err != nil {
		log.Fatalf("profiling input: %v", err)
	}
	after, err := layerProfile(d, fuzzed, target)
	if err != nil {
		log.Fatalf("profiling output: %v", err)
	}
	if len(before) == 0 {
		log.Fatalf("layer %d has no extrusion moves", target)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Layer %d Z profile", target)
	p.X.Label.Text = "path distance (mm)"
	p.Y.Label.Text = "Z (mm)"

	origLine, err := plotter.NewLine(before)
	if err != nil {
		log.Fatalf("plotting original: %v", err)
	}
	origLine.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	origLine.Width = vg.Points(1)

	fuzzLine, err := plotter.NewLine(after)
	if err != nil {
		log.Fatalf("plotting fuzzed: %v", err)
	}
	fuzzLine.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	fuzzLine.Width = vg.Points(1)

	p.Add(origLine, fuzzLine)
	p.Legend.Add("original", origLine)
	p.Legend.Add("fuzzed", fuzzLine)

	if err := p.Save(14*vg.Inch, 4*vg.Inch, *outPath); err != nil {
		log.Fatalf("saving plot: %v", err)
	}
	log.Printf("wrote %s (%d original points, %d fuzzed points)", *outPath, len(before), len(after))
}

func boolPtr(v bool) *bool { return &v }
