package dots

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/geom"
	"github.com/matzehuels/dotstim/pkg/observability"
)

// Params is the parameter set for one generated layout.
type Params struct {
	Dots      int             `json:"number_of_dots" toml:"number_of_dots"`
	TotalArea float64         `json:"total_dot_area" toml:"total_dot_area"`
	HullArea  float64         `json:"desired_hull_area" toml:"desired_hull_area"`
	Shape     Shape           `json:"shape" toml:"shape"`
	Tries     int             `json:"number_of_tries" toml:"number_of_tries"`
	Sampling  SamplingOptions `json:"sampling,omitzero" toml:"sampling"`
}

// Validate checks the parameters that do not depend on the canvas.
func (p Params) Validate() error {
	if err := errors.ValidatePositiveInt("number_of_dots", p.Dots); err != nil {
		return err
	}
	if err := errors.ValidatePositiveFloat("total_dot_area", p.TotalArea); err != nil {
		return err
	}
	if err := errors.ValidatePositiveFloat("desired_hull_area", p.HullArea); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("number_of_tries", p.Tries); err != nil {
		return err
	}
	if err := p.Sampling.Validate(); err != nil {
		return err
	}
	return errors.ValidateOneOf(errors.ErrCodeInvalidShape, "shape", string(p.Shape), string(ShapeCircle), string(ShapeSquare))
}

// Dot is a placed dot.
type Dot struct {
	Center geom.Point `json:"center"`
	Radius float64    `json:"radius"`
}

// Layout is a finished arrangement of dots on a canvas.
type Layout struct {
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Centers        []geom.Point `json:"centers"`
	Radii          []float64    `json:"radii"`
	Hull           []geom.Point `json:"hull"`
	HullArea       float64      `json:"hull_area"`
	TargetHullArea float64      `json:"target_hull_area"`
	Region         Region       `json:"region"`
	Attempts       int          `json:"attempts"`
	// Seed is recorded by callers that derive the generator from a seed.
	Seed uint64 `json:"seed,omitempty"`
}

// Dots returns the layout as a slice of dots.
func (l Layout) Dots() []Dot {
	out := make([]Dot, len(l.Centers))
	for i, c := range l.Centers {
		out[i] = Dot{Center: c, Radius: l.Radii[i]}
	}
	return out
}

// TotalArea returns the summed area of all dots.
func (l Layout) TotalArea() float64 {
	var sum float64
	for _, r := range l.Radii {
		sum += geom.CircleArea(r)
	}
	return sum
}

// HullError returns the relative deviation of the hull area from its target.
func (l Layout) HullError() float64 {
	if l.TargetHullArea == 0 {
		return 0
	}
	return (l.HullArea - l.TargetHullArea) / l.TargetHullArea
}

// Generate samples dot sizes, places the dots and fits their hull to
// p.HullArea.
//
// The enclosing region has area p.HullArea and only bounds initial placement;
// the hull is then retargeted to the same area. Hull fitting never moves a
// center off the canvas; when the target cannot be reached without doing so,
// the layout keeps the closest hull that stays on the canvas. Placement is
// retried wholesale up to p.Tries times, and an attempt whose placed centers
// lie off the canvas counts as a failure. When every attempt fails a
// *GenerationError is returned.
func Generate(ctx context.Context, rng *rand.Rand, cfg Config, p Params) (Layout, error) {
	if err := p.Validate(); err != nil {
		return Layout{}, err
	}
	areas, err := SampleAreas(rng, cfg, p.Dots, p.TotalArea, p.Sampling)
	if err != nil {
		return Layout{}, err
	}
	slices.SortFunc(areas, func(a, b float64) int { return cmp.Compare(b, a) })
	radii := Radii(areas)

	center := cfg.Center()
	region := RegionForArea(p.Shape, p.HullArea, center)
	hooks := observability.Generation()
	start := time.Now()
	hooks.OnGenerateStart(ctx, p.Dots, string(p.Shape))

	var last error
	for attempt := 1; attempt <= p.Tries; attempt++ {
		if err := ctx.Err(); err != nil {
			hooks.OnGenerateComplete(ctx, attempt-1, time.Since(start), err)
			return Layout{}, err
		}

		centers, err := Place(rng, cfg, radii, region)
		if err != nil {
			last = err
			hooks.OnPlacementAttempt(ctx, attempt, err)
			continue
		}
		fit := FitHull(centers, radii, p.HullArea, center, HullOptions{
			Iterations: cfg.HullIterations,
			Tolerance:  cfg.HullTolerance,
			Bounds:     cfg.Bounds(),
		})
		if i, ok := firstOutside(cfg.Bounds(), fit.Centers); ok {
			last = &overflowError{Dot: i}
			hooks.OnPlacementAttempt(ctx, attempt, last)
			continue
		}
		hooks.OnPlacementAttempt(ctx, attempt, nil)

		layout := Layout{
			Width:          cfg.Width,
			Height:         cfg.Height,
			Centers:        fit.Centers,
			Radii:          radii,
			Hull:           fit.Hull,
			HullArea:       fit.Area,
			TargetHullArea: p.HullArea,
			Region:         region,
			Attempts:       attempt,
		}
		hooks.OnGenerateComplete(ctx, attempt, time.Since(start), nil)
		return layout, nil
	}

	err = &GenerationError{Params: p, Region: region, Attempts: p.Tries, Last: last}
	hooks.OnGenerateComplete(ctx, p.Tries, time.Since(start), err)
	return Layout{}, err
}

// firstOutside returns the first center that lies outside bounds. Dots near
// the edge may be clipped by the canvas; their centers may not.
func firstOutside(bounds geom.Box, centers []geom.Point) (int, bool) {
	for i, c := range centers {
		if !bounds.Contains(c) {
			return i, true
		}
	}
	return 0, false
}
