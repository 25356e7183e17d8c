// Package pipeline provides the generate → render pipeline shared by the CLI,
// the batch driver and the HTTP server.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Generate: sample dot areas, place the dots and fit the hull
//     ([dots.Generate]), seeded from Options.Seed
//  2. Render: rasterize the layout and encode it (PNG, JSON)
//
// Both stages are cached through a [Runner]: layouts by every generation
// parameter plus the seed, artifacts by layout hash plus render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Dots:      40,
//	    TotalArea: 24000,
//	    HullArea:  140000,
//	    Seed:      7,
//	    Formats:   []string{pipeline.FormatPNG},
//	})
//	png := result.Artifacts["png"]
//
// Many images are produced with [RunBatch], which fans jobs out over a fixed
// worker pool.
//
// [dots.Generate]: github.com/matzehuels/dotstim/pkg/dots.Generate
package pipeline

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dotstim/pkg/cache"
	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, Batch and Server
// =============================================================================

const (
	DefaultDots      = 40
	DefaultTotalArea = 24000.0
	DefaultHullArea  = 140000.0
	DefaultShape     = dots.ShapeCircle

	// DefaultTries is the number of wholesale placement attempts.
	DefaultTries = 10

	DefaultWidth  = dots.DefaultWidth
	DefaultHeight = dots.DefaultHeight

	// DefaultSeed is used when no seed is given.
	DefaultSeed = uint64(42)
)

// Format constants for output formats.
const (
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats lists the supported output formats.
var ValidFormats = []string{FormatPNG, FormatJSON}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options is the full parameter set for one stimulus. It serializes to JSON
// for the HTTP server and to TOML in batch files.
type Options struct {
	// Generation
	Dots           int                  `json:"number_of_dots,omitempty" toml:"number_of_dots"`
	TotalArea      float64              `json:"total_dot_area,omitempty" toml:"total_dot_area"`
	HullArea       float64              `json:"desired_hull_area,omitempty" toml:"desired_hull_area"`
	Shape          dots.Shape           `json:"shape,omitempty" toml:"shape"`
	Tries          int                  `json:"number_of_tries,omitempty" toml:"number_of_tries"`
	Sampling       dots.SamplingOptions `json:"sampling,omitzero" toml:"sampling"`
	HullIterations int                  `json:"hull_iterations,omitempty" toml:"hull_iterations"`
	HullTolerance  float64              `json:"hull_tolerance,omitempty" toml:"hull_tolerance"`
	Width          int                  `json:"width,omitempty" toml:"width"`
	Height         int                  `json:"height,omitempty" toml:"height"`
	Seed           uint64               `json:"seed,omitempty" toml:"seed"`

	// Rendering
	Render  render.Options `json:"render,omitzero" toml:"render"`
	Formats []string       `json:"formats,omitempty" toml:"formats"`

	// Refresh bypasses cached layouts and artifacts.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	Logger *log.Logger `json:"-" toml:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Layout dots.Layout

	// LayoutHash is the content hash of the layout JSON.
	LayoutHash string

	// Artifacts holds encoded outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Dots         int
	Attempts     int
	HullError    float64
	GenerateTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all requested artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	return errors.ValidateOneOf(errors.ErrCodeInvalidFormat, "format", format, ValidFormats...)
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults applies defaults and validates the full pipeline.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetGenerateDefaults fills unset generation fields.
func (o *Options) SetGenerateDefaults() {
	if o.Dots == 0 {
		o.Dots = DefaultDots
	}
	if o.TotalArea == 0 {
		o.TotalArea = DefaultTotalArea
	}
	if o.HullArea == 0 {
		o.HullArea = DefaultHullArea
	}
	if o.Shape == "" {
		o.Shape = DefaultShape
	}
	if o.Tries == 0 {
		o.Tries = DefaultTries
	}
	if o.HullIterations == 0 {
		o.HullIterations = dots.DefaultHullIterations
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForGenerate applies generation defaults and validates them.
func (o *Options) ValidateForGenerate() error {
	o.SetGenerateDefaults()
	if err := errors.ValidatePositiveInt("width", o.Width); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("height", o.Height); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("hull_iterations", o.HullIterations); err != nil {
		return err
	}
	if !(o.HullTolerance >= 0) || math.IsInf(o.HullTolerance, 0) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "hull_tolerance must be a finite non-negative number, got %v", o.HullTolerance)
	}
	return o.Params().Validate()
}

// SetRenderDefaults fills unset render fields.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPNG}
	}
	o.Render = o.Render.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender applies render defaults and validates them.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return o.Render.Validate()
}

// Params returns the generation parameters.
func (o *Options) Params() dots.Params {
	return dots.Params{
		Dots:      o.Dots,
		TotalArea: o.TotalArea,
		HullArea:  o.HullArea,
		Shape:     o.Shape,
		Tries:     o.Tries,
		Sampling:  o.Sampling,
	}
}

// Config returns the canvas configuration for these options.
func (o *Options) Config() dots.Config {
	cfg := dots.NewConfig(o.Width, o.Height)
	if o.HullIterations > 0 {
		cfg.HullIterations = o.HullIterations
	}
	cfg.HullTolerance = o.HullTolerance
	return cfg
}

// LayoutKeyOpts returns cache key options for layout generation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:          o.Width,
		Height:         o.Height,
		Dots:           o.Dots,
		TotalArea:      o.TotalArea,
		HullArea:       o.HullArea,
		Shape:          string(o.Shape),
		Tries:          o.Tries,
		Seed:           o.Seed,
		BinWidth:       o.Sampling.BinWidth,
		StandardDev:    o.Sampling.StandardDev,
		MinArea:        o.Sampling.MinArea,
		MaxArea:        o.Sampling.MaxArea,
		HullIterations: o.HullIterations,
		HullTolerance:  o.HullTolerance,
	}
}

// ArtifactKeyOpts returns cache key options for one output format. JSON
// output does not depend on the raster options.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	if format == FormatJSON {
		return cache.ArtifactKeyOpts{Format: format}
	}
	return cache.ArtifactKeyOpts{
		Format:      format,
		Supersample: o.Render.Supersample,
		Background:  o.Render.Background,
		Foreground:  o.Render.Foreground,
		DrawHull:    o.Render.DrawHull,
		HullColor:   o.Render.HullColor,
		HullWidth:   o.Render.HullWidth,
		Filter:      string(o.Render.Filter),
	}
}
