package server

import (
	"net/url"
	"strconv"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/pipeline"
	"github.com/matzehuels/dotstim/pkg/render"
)

// ParseQuery maps query values onto pipeline options. Missing values stay
// zero so the pipeline defaults apply; malformed values are INVALID_INPUT.
//
// Recognised keys: number_of_dots, total_dot_area,
// desired_hull_area, shape, number_of_tries, seed, width, height,
// bin_width, standard_dev, min_dot_area, max_dot_area, hull_iterations,
// hull_tolerance, supersample, background, foreground, draw_hull,
// hull_color, hull_width and filter.
func ParseQuery(q url.Values) (pipeline.Options, error) {
	p := queryParser{q: q}
	opts := pipeline.Options{
		Dots:           p.intValue("number_of_dots"),
		TotalArea:      p.floatValue("total_dot_area"),
		HullArea:       p.floatValue("desired_hull_area"),
		Shape:          dots.Shape(q.Get("shape")),
		Tries:          p.intValue("number_of_tries"),
		Seed:           p.uintValue("seed"),
		Width:          p.intValue("width"),
		Height:         p.intValue("height"),
		HullIterations: p.intValue("hull_iterations"),
		HullTolerance:  p.floatValue("hull_tolerance"),
		Sampling: dots.SamplingOptions{
			BinWidth:    p.floatValue("bin_width"),
			StandardDev: p.floatValue("standard_dev"),
			MinArea:     p.floatValue("min_dot_area"),
			MaxArea:     p.floatValue("max_dot_area"),
		},
		Render: render.Options{
			Supersample: p.intValue("supersample"),
			Background:  q.Get("background"),
			Foreground:  q.Get("foreground"),
			DrawHull:    p.boolValue("draw_hull"),
			HullColor:   q.Get("hull_color"),
			HullWidth:   p.floatValue("hull_width"),
			Filter:      render.Filter(q.Get("filter")),
		},
	}
	if p.err != nil {
		return pipeline.Options{}, p.err
	}
	return opts, nil
}

// queryParser keeps the first conversion error.
type queryParser struct {
	q   url.Values
	err error
}

func (p *queryParser) value(key string) (string, bool) {
	if p.err != nil || !p.q.Has(key) {
		return "", false
	}
	return p.q.Get(key), true
}

func (p *queryParser) fail(key, v string, cause error) {
	p.err = errors.Wrap(errors.ErrCodeInvalidInput, cause, "query parameter %s=%q", key, v)
}

func (p *queryParser) intValue(key string) int {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *queryParser) uintValue(key string) uint64 {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *queryParser) floatValue(key string) float64 {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
	}
	return f
}

func (p *queryParser) boolValue(key string) bool {
	v, ok := p.value(key)
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return b
}
