// Package dots generates layouts of non-overlapping circular dots for
// numerosity stimuli.
//
// # Overview
//
// A layout is built in three stages, each a pure function of its inputs and a
// caller-supplied random source:
//
//  1. [SampleAreas] draws one area per dot from a bounded uniform distribution
//     and rescales the sample so the areas sum exactly to the requested total.
//  2. [Place] assigns each dot a center inside an enclosing [Region] so that no
//     two margin-inflated bounding boxes intersect, using an R-tree for
//     collision queries and a bounded number of random candidates per dot.
//  3. [FitHull] rescales the placed centers about the canvas center until the
//     convex hull of all dot bounding-box corners has the target area.
//
// [Generate] ties the stages together and retries placement wholesale when a
// dot cannot be placed.
//
// # Usage
//
//	cfg := dots.NewConfig(500, 500)
//	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
//	layout, err := dots.Generate(rng, cfg, dots.Params{
//	    Dots:      10,
//	    TotalArea: 8000,
//	    HullArea:  140000,
//	    Shape:     dots.ShapeCircle,
//	    Tries:     10,
//	})
//
// # Errors
//
// Parameter problems are reported with code INVALID_CONFIGURATION before any
// random number is drawn. A single failed placement attempt is a
// [*PlacementError]; when every attempt fails [Generate] returns a
// [*GenerationError] carrying the parameter set.
package dots
