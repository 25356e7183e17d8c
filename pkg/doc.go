// Package pkg provides the libraries behind dotstim, a generator of
// calibrated dot-array stimuli for numerosity research.
//
// # Overview
//
// A stimulus is an image of non-overlapping solid dots. Four quantities are
// controlled independently: the number of dots, their summed area, the
// spread of their sizes and the area of their convex hull. The packages are:
//
//  1. [dots] - Core: area sampling, spatial-index placement, hull fitting
//  2. [geom] - Points, boxes, convex hull, polygon area
//  3. [render] - Supersampled rasterization and the PNG/JSON sinks
//  4. [pipeline] - Options, cached Runner, parallel batches
//  5. [cache], [store], [config] - Infrastructure
//
// # Architecture
//
//	Params + seed
//	      ↓
//	[dots.SampleAreas]   uniform areas, rescaled to the total
//	      ↓
//	[dots.Place]         largest first, R-tree overlap queries
//	      ↓
//	[dots.FitHull]       rescale positions until the hull matches
//	      ↓
//	[render.Render]      draw at k× size, box-filter down
//	      ↓
//	PNG / JSON
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Dots:      20,
//	    TotalArea: 12000,
//	    HullArea:  90000,
//	    Seed:      7,
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("stimulus.png", result.Artifacts["png"], 0o644)
//
// [dots]: github.com/matzehuels/dotstim/pkg/dots
// [geom]: github.com/matzehuels/dotstim/pkg/geom
// [render]: github.com/matzehuels/dotstim/pkg/render
// [pipeline]: github.com/matzehuels/dotstim/pkg/pipeline
// [cache]: github.com/matzehuels/dotstim/pkg/cache
// [store]: github.com/matzehuels/dotstim/pkg/store
// [config]: github.com/matzehuels/dotstim/pkg/config
// [dots.SampleAreas]: github.com/matzehuels/dotstim/pkg/dots.SampleAreas
// [dots.Place]: github.com/matzehuels/dotstim/pkg/dots.Place
// [dots.FitHull]: github.com/matzehuels/dotstim/pkg/dots.FitHull
// [render.Render]: github.com/matzehuels/dotstim/pkg/render.Render
package pkg
