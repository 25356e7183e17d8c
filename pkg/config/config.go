// Package config loads batch job files.
//
// A job file is TOML and describes how many stimuli to produce, where to put
// them and which parameters to use:
//
//	count   = 11
//	workers = 4
//	seed    = 1
//	output  = "stimuli/{{printf \"%03d\" .Index}}.png"
//	records = "stimuli/manifest.jsonl"
//
//	[dots]
//	number_of_dots    = 40
//	total_dot_area    = 24000
//	desired_hull_area = 140000
//	shape             = "circle"
//	number_of_tries   = 10
//
//	[dots.sampling]
//	standard_dev = 350
//
//	[canvas]
//	width       = 500
//	height      = 500
//	supersample = 4
//	foreground  = "#00ffff"
//
// The output path is a text/template evaluated per image with .Index, .Seed
// and .ID (the record UUID).
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/pipeline"
	"github.com/matzehuels/dotstim/pkg/render"
)

const (
	DefaultCount  = 1
	DefaultOutput = `stimuli/{{printf "%03d" .Index}}.png`
)

// Job is a parsed job file.
type Job struct {
	Count   int    `toml:"count"`
	Workers int    `toml:"workers"`
	Seed    uint64 `toml:"seed"`
	Output  string `toml:"output"`

	// Records is a JSONL manifest path or a mongodb:// URI. Empty disables
	// record keeping.
	Records string `toml:"records"`

	// WriteLayout also writes a .json layout next to each image.
	WriteLayout bool `toml:"write_layout"`

	Dots   dots.Params `toml:"dots"`
	Hull   Hull        `toml:"hull"`
	Canvas Canvas      `toml:"canvas"`

	output *template.Template
}

// Hull tunes hull fitting.
type Hull struct {
	Iterations int     `toml:"iterations"`
	Tolerance  float64 `toml:"tolerance"`
}

// Canvas holds canvas size and rendering options.
type Canvas struct {
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	Supersample int     `toml:"supersample"`
	Background  string  `toml:"background"`
	Foreground  string  `toml:"foreground"`
	DrawHull    bool    `toml:"draw_hull"`
	HullColor   string  `toml:"hull_color"`
	HullWidth   float64 `toml:"hull_width"`
	Filter      string  `toml:"filter"`
}

// OutputData is the template data for output paths.
type OutputData struct {
	Index int
	Seed  uint64
	ID    string
}

// Load reads and validates a job file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "job file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read job file %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a job file. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Parse(data []byte) (*Job, error) {
	var j Job
	md, err := toml.Decode(string(data), &j)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse job file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "unknown keys in job file: %s", strings.Join(keys, ", "))
	}
	j.SetDefaults()
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// SetDefaults fills unset top-level fields and dot parameters.
func (j *Job) SetDefaults() {
	if j.Count == 0 {
		j.Count = DefaultCount
	}
	if j.Seed == 0 {
		j.Seed = pipeline.DefaultSeed
	}
	if j.Output == "" {
		j.Output = DefaultOutput
	}
	// Dot parameters share the pipeline defaults.
	opts := j.Options()
	opts.SetGenerateDefaults()
	j.Dots = opts.Params()
}

// Validate checks the job, including every pipeline option.
func (j *Job) Validate() error {
	if err := errors.ValidatePositiveInt("count", j.Count); err != nil {
		return err
	}
	if j.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "workers must not be negative, got %d", j.Workers)
	}
	tmpl, err := template.New("output").Option("missingkey=error").Parse(j.Output)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "output template %q", j.Output)
	}
	j.output = tmpl
	if _, err := j.OutputPath(OutputData{ID: "00000000-0000-0000-0000-000000000000"}); err != nil {
		return err
	}
	opts := j.Options()
	return opts.ValidateAndSetDefaults()
}

// Options returns the pipeline options shared by every image of the job.
func (j *Job) Options() pipeline.Options {
	formats := []string{pipeline.FormatPNG}
	if j.WriteLayout {
		formats = append(formats, pipeline.FormatJSON)
	}
	return pipeline.Options{
		Dots:           j.Dots.Dots,
		TotalArea:      j.Dots.TotalArea,
		HullArea:       j.Dots.HullArea,
		Shape:          j.Dots.Shape,
		Tries:          j.Dots.Tries,
		Sampling:       j.Dots.Sampling,
		HullIterations: j.Hull.Iterations,
		HullTolerance:  j.Hull.Tolerance,
		Width:          j.Canvas.Width,
		Height:         j.Canvas.Height,
		Seed:           j.Seed,
		Render: render.Options{
			Supersample: j.Canvas.Supersample,
			Background:  j.Canvas.Background,
			Foreground:  j.Canvas.Foreground,
			DrawHull:    j.Canvas.DrawHull,
			HullColor:   j.Canvas.HullColor,
			HullWidth:   j.Canvas.HullWidth,
			Filter:      render.Filter(j.Canvas.Filter),
		},
		Formats: formats,
	}
}

// OutputPath renders the output template for one image.
func (j *Job) OutputPath(d OutputData) (string, error) {
	if j.output == nil {
		tmpl, err := template.New("output").Option("missingkey=error").Parse(j.Output)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "output template %q", j.Output)
		}
		j.output = tmpl
	}
	var buf bytes.Buffer
	if err := j.output.Execute(&buf, d); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "output template %q", j.Output)
	}
	path := filepath.Clean(buf.String())
	if err := errors.ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}
