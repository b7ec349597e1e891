package fuzz

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/printforge/fuzzyskin/internal/dialect"
)

// Built-in defaults. Explicit overrides sit above slicer-detected profile
// values, which sit above these.
const (
	DefaultResolution                   = 0.3 // mm between subdivision vertices
	DefaultZMin                         = 0.0 // lower displacement bound (mm)
	DefaultZMax                         = 0.3 // upper displacement bound (mm)
	DefaultBridgeCompensationMultiplier = 3.0 // scales compensation deltas on bottom surfaces
	DefaultMinSupportDistance           = 0.1 // required clearance above supports (mm)
	DefaultXYThickness                  = 0.3 // painted stroke reach (mm)
	DefaultXYPointDist                  = 0.3 // painted stroke sample spacing (mm)
)

// Mode selects how vertex offsets are produced.
type Mode string

const (
	// ModeRandom draws every offset uniformly from [zMin, zMax].
	ModeRandom Mode = "random"
	// ModePaint offsets only vertices within painted strokes.
	ModePaint Mode = "paint"
	// ModeMap samples offsets from a grayscale displacement map.
	ModeMap Mode = "map"
)

// ConfigError reports an invalid or contradictory resolved configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fuzz: invalid config: %s: %s", e.Field, e.Reason)
}

// Options carries caller intent. Nil fields were not specified and resolve
// from the file's slicer profile, then from the built-in defaults, so
// partial configs are safe.
type Options struct {
	Run                          *bool    `json:"run,omitempty"`
	Resolution                   *float64 `json:"resolution,omitempty"`
	ZMin                         *float64 `json:"zMin,omitempty"`
	ZMax                         *float64 `json:"zMax,omitempty"`
	ConnectWalls                 *bool    `json:"connectWalls,omitempty"`
	CompensateExtrusion          *bool    `json:"compensateExtrusion,omitempty"`
	TopSurface                   *bool    `json:"topSurface,omitempty"`
	LowerSurface                 *bool    `json:"lowerSurface,omitempty"`
	BridgeCompensationMultiplier *float64 `json:"bridgeCompensationMultiplier,omitempty"`
	MinSupportDistance           *float64 `json:"minSupportDistance,omitempty"`
	XYThickness                  *float64 `json:"xyThickness,omitempty"`
	XYPointDist                  *float64 `json:"xyPointDist,omitempty"`
	FuzzySpeed                   *float64 `json:"fuzzySpeed,omitempty"`
	DisplacementMap              string   `json:"displacementMap,omitempty"`
	Strokes                      string   `json:"strokes,omitempty"`
	Seed                         *int64   `json:"seed,omitempty"`
}

// Pointer helpers for building Options in code.
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt64(v int64) *int64       { return &v }

// LoadOptions loads Options from a JSON file. The file must carry a .json
// extension and stay under the max file size. Fields omitted from the JSON
// resolve as if never specified.
func LoadOptions(path string) (Options, error) {
	var o Options

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return o, fmt.Errorf("options file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return o, fmt.Errorf("failed to stat options file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return o, fmt.Errorf("options file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return o, fmt.Errorf("failed to read options file: %w", err)
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("failed to parse options JSON: %w", err)
	}
	return o, nil
}

// Merge overlays b onto o: fields set in b win. Used to stack a -config
// file under explicit command-line flags.
func (o Options) Merge(b Options) Options {
	if b.Run != nil {
		o.Run = b.Run
	}
	if b.Resolution != nil {
		o.Resolution = b.Resolution
	}
	if b.ZMin != nil {
		o.ZMin = b.ZMin
	}
	if b.ZMax != nil {
		o.ZMax = b.ZMax
	}
	if b.ConnectWalls != nil {
		o.ConnectWalls = b.ConnectWalls
	}
	if b.CompensateExtrusion != nil {
		o.CompensateExtrusion = b.CompensateExtrusion
	}
	if b.TopSurface != nil {
		o.TopSurface = b.TopSurface
	}
	if b.LowerSurface != nil {
		o.LowerSurface = b.LowerSurface
	}
	if b.BridgeCompensationMultiplier != nil {
		o.BridgeCompensationMultiplier = b.BridgeCompensationMultiplier
	}
	if b.MinSupportDistance != nil {
		o.MinSupportDistance = b.MinSupportDistance
	}
	if b.XYThickness != nil {
		o.XYThickness = b.XYThickness
	}
	if b.XYPointDist != nil {
		o.XYPointDist = b.XYPointDist
	}
	if b.FuzzySpeed != nil {
		o.FuzzySpeed = b.FuzzySpeed
	}
	if b.DisplacementMap != "" {
		o.DisplacementMap = b.DisplacementMap
	}
	if b.Strokes != "" {
		o.Strokes = b.Strokes
	}
	if b.Seed != nil {
		o.Seed = b.Seed
	}
	return o
}

// Config is the flat, fully resolved configuration the engine runs on.
type Config struct {
	Dialect dialect.Dialect
	Run     bool
	Mode    Mode

	Resolution          float64
	ZMin, ZMax          float64
	ConnectWalls        bool
	CompensateExtrusion bool
	TopSurface          bool
	LowerSurface        bool

	BridgeCompensationMultiplier float64
	MinSupportDistance           float64
	SupportContact               float64 // detected contact distance; +Inf when the file has none

	XYThickness float64
	XYPointDist float64

	FuzzySpeed float64 // mm/min feed for fuzzed segments; 0 leaves feeds alone

	DisplacementMap string
	Strokes         string
	Seed            int64
}

// Resolve produces the engine Config from caller options and the values
// recovered from the file: explicit options win over detected profile
// values, which win over built-in defaults.
func (o Options) Resolve(d dialect.Dialect, s dialect.Settings) (Config, error) {
	cfg := Config{
		Dialect:                      d,
		Mode:                         ModeRandom,
		Resolution:                   DefaultResolution,
		ZMin:                         DefaultZMin,
		ZMax:                         DefaultZMax,
		ConnectWalls:                 true,
		CompensateExtrusion:          true,
		TopSurface:                   true,
		LowerSurface:                 true,
		BridgeCompensationMultiplier: DefaultBridgeCompensationMultiplier,
		MinSupportDistance:           DefaultMinSupportDistance,
		SupportContact:               math.Inf(1),
		XYThickness:                  DefaultXYThickness,
		XYPointDist:                  DefaultXYPointDist,
		Seed:                         time.Now().UnixNano(),
	}

	// Slicer-detected layer.
	if s.FuzzySkin != nil {
		cfg.Run = *s.FuzzySkin
	}
	if s.PointDist != nil {
		cfg.Resolution = *s.PointDist
		cfg.XYPointDist = *s.PointDist
	}
	if s.Thickness != nil {
		cfg.ZMax = *s.Thickness
		cfg.XYThickness = *s.Thickness
	}
	if s.SupportContact != nil {
		cfg.SupportContact = *s.SupportContact
	}

	// Explicit overrides.
	if o.Run != nil {
		cfg.Run = *o.Run
	}
	if o.Resolution != nil {
		cfg.Resolution = *o.Resolution
	}
	if o.ZMin != nil {
		cfg.ZMin = *o.ZMin
	}
	if o.ZMax != nil {
		cfg.ZMax = *o.ZMax
	}
	if o.ConnectWalls != nil {
		cfg.ConnectWalls = *o.ConnectWalls
	}
	if o.CompensateExtrusion != nil {
		cfg.CompensateExtrusion = *o.CompensateExtrusion
	}
	if o.TopSurface != nil {
		cfg.TopSurface = *o.TopSurface
	}
	if o.LowerSurface != nil {
		cfg.LowerSurface = *o.LowerSurface
	}
	if o.BridgeCompensationMultiplier != nil {
		cfg.BridgeCompensationMultiplier = *o.BridgeCompensationMultiplier
	}
	if o.MinSupportDistance != nil {
		cfg.MinSupportDistance = *o.MinSupportDistance
	}
	if o.XYThickness != nil {
		cfg.XYThickness = *o.XYThickness
	}
	if o.XYPointDist != nil {
		cfg.XYPointDist = *o.XYPointDist
	}
	if o.FuzzySpeed != nil {
		cfg.FuzzySpeed = *o.FuzzySpeed
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}

	cfg.DisplacementMap = o.DisplacementMap
	cfg.Strokes = o.Strokes
	switch {
	case cfg.DisplacementMap != "" && cfg.Strokes != "":
		return cfg, &ConfigError{Field: "mode", Reason: "displacement map and strokes are mutually exclusive"}
	case cfg.DisplacementMap != "":
		cfg.Mode = ModeMap
	case cfg.Strokes != "":
		cfg.Mode = ModePaint
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration for contradictions.
func (c *Config) Validate() error {
	if c.Resolution <= 0 {
		return &ConfigError{Field: "resolution", Reason: fmt.Sprintf("must be positive, got %v", c.Resolution)}
	}
	if c.ZMin > c.ZMax {
		return &ConfigError{Field: "zMin", Reason: fmt.Sprintf("zMin %v exceeds zMax %v", c.ZMin, c.ZMax)}
	}
	if c.BridgeCompensationMultiplier < 0 {
		return &ConfigError{Field: "bridgeCompensationMultiplier", Reason: "must not be negative"}
	}
	if c.MinSupportDistance < 0 {
		return &ConfigError{Field: "minSupportDistance", Reason: "must not be negative"}
	}
	if c.FuzzySpeed < 0 {
		return &ConfigError{Field: "fuzzySpeed", Reason: "must not be negative"}
	}
	if c.Mode == ModePaint {
		if c.XYThickness <= 0 {
			return &ConfigError{Field: "xyThickness", Reason: "must be positive in paint mode"}
		}
		if c.XYPointDist <= 0 {
			return &ConfigError{Field: "xyPointDist", Reason: "must be positive in paint mode"}
		}
	}
	return nil
}
