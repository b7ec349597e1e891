// Command fuzzyskin rewrites sliced G-code so top, overhang or painted
// surfaces print with a non-planar fuzzy texture. By default the input file
// is rewritten in place; the original is only replaced once the whole
// transform has succeeded.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/printforge/fuzzyskin/internal/fsutil"
	"github.com/printforge/fuzzyskin/internal/fuzz"
	"github.com/printforge/fuzzyskin/internal/version"
)

var (
	inPath      = flag.String("in", "", "G-code file to process (required)")
	outPath     = flag.String("out", "", "Output file (default: rewrite -in in place)")
	configPath  = flag.String("config", "", "JSON options file; explicit flags override it")
	dryRun      = flag.Bool("dry-run", false, "Report what would change without writing")
	verbose     = flag.Bool("v", false, "Enable debug logging")
	logPath     = flag.String("log", "", "Also append logs to this rotating file")
	showVersion = flag.Bool("version", false, "Print version and exit")

	runFlag      = flag.Bool("run", true, "Force the transform on or off (unset: follow the file's fuzzy_skin profile setting)")
	resolution   = flag.Float64("resolution", fuzz.DefaultResolution, "Spatial step between subdivision vertices (mm)")
	zMin         = flag.Float64("zmin", fuzz.DefaultZMin, "Lower displacement bound (mm)")
	zMax         = flag.Float64("zmax", fuzz.DefaultZMax, "Upper displacement bound (mm)")
	connectWalls = flag.Bool("connect-walls", true, "Pin the first vertex of each run to the surface plane")
	compensate   = flag.Bool("compensate-extrusion", true, "Rescale extrusion to the true 3D path length")
	topSurface   = flag.Bool("top-surface", true, "Fuzz top solid surfaces")
	lowerSurface = flag.Bool("lower-surface", true, "Fuzz bridge/overhang surfaces")
	bridgeMult   = flag.Float64("bridge-multiplier", fuzz.DefaultBridgeCompensationMultiplier, "Extra scaling of compensation on bridging runs")
	minSupport   = flag.Float64("min-support-distance", fuzz.DefaultMinSupportDistance, "Required clearance above support interfaces (mm)")
	xyThickness  = flag.Float64("xy-thickness", fuzz.DefaultXYThickness, "Painted stroke reach (mm)")
	xyPointDist  = flag.Float64("xy-point-dist", fuzz.DefaultXYPointDist, "Painted stroke sample spacing (mm)")
	fuzzySpeed   = flag.Float64("fuzzy-speed", 0, "Feed rate override on fuzzed segments, mm/min (0 keeps file feeds)")
	dispMapPath  = flag.String("displacement-map", "", "Grayscale image driving displacement (selects map mode)")
	strokesPath  = flag.String("strokes", "", "Painted strokes JSON file (selects paint mode)")
	seed         = flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
)

// flagOptions lifts explicitly-set flags into Options. flag.Visit only walks
// flags the caller actually passed, so defaults never mask the values the
// slicer profile carries in the file.
func flagOptions() fuzz.Options {
	var o fuzz.Options
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "run":
			o.Run = runFlag
		case "resolution":
			o.Resolution = resolution
		case "zmin":
			o.ZMin = zMin
		case "zmax":
			o.ZMax = zMax
		case "connect-walls":
			o.ConnectWalls = connectWalls
		case "compensate-extrusion":
			o.CompensateExtrusion = compensate
		case "top-surface":
			o.TopSurface = topSurface
		case "lower-surface":
			o.LowerSurface = lowerSurface
		case "bridge-multiplier":
			o.BridgeCompensationMultiplier = bridgeMult
		case "min-support-distance":
			o.MinSupportDistance = minSupport
		case "xy-thickness":
			o.XYThickness = xyThickness
		case "xy-point-dist":
			o.XYPointDist = xyPointDist
		case "fuzzy-speed":
			o.FuzzySpeed = fuzzySpeed
		case "displacement-map":
			o.DisplacementMap = *dispMapPath
		case "strokes":
			o.Strokes = *strokesPath
		case "seed":
			o.Seed = seed
		}
	})
	return o
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if *logPath != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   *logPath,
			MaxSize:    10, // MB
			MaxBackups: 3,
		}))
	}
	return log
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("fuzzyskin %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "fuzzyskin: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	log := newLogger().WithField("run", uuid.NewString()[:8])

	opts := flagOptions()
	if *configPath != "" {
		base, err := fuzz.LoadOptions(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		opts = base.Merge(opts)
	}

	doc, err := fsutil.ReadLines(*inPath)
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}

	out, stats, err := fuzz.Process(doc.Lines, opts, log)
	if err != nil {
		log.Fatalf("processing %s: %v", *inPath, err)
	}

	log.WithFields(logrus.Fields{
		"lines_in":  stats.Lines,
		"lines_out": len(out),
		"runs":      stats.Runs,
		"short":     stats.ShortRuns,
		"excluded":  stats.ExcludedRuns,
		"segments":  stats.Segments,
		"displaced": stats.Displaced,
	}).Info("transform complete")

	if *dryRun {
		log.Info("dry run, no output written")
		return
	}

	dest := *outPath
	if dest == "" {
		dest = *inPath
	}
	if err := fsutil.WriteLines(dest, doc.WithLines(out)); err != nil {
		log.Fatalf("writing output: %v", err)
	}
	log.WithField("file", dest).Info("output written")
}
