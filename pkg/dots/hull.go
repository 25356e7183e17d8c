package dots

import (
	"math"
	"slices"

	"github.com/matzehuels/dotstim/pkg/geom"
)

// HullOptions controls [FitHull].
type HullOptions struct {
	// Iterations caps the number of rescaling passes.
	Iterations int
	// Tolerance ends fitting early once |area-target|/target <= Tolerance.
	// Zero runs all Iterations passes.
	Tolerance float64
	// Bounds, when non-empty, confines centers: a pass that would move a
	// center outside Bounds is not applied and fitting stops.
	Bounds geom.Box
}

// HullFit is the result of [FitHull].
type HullFit struct {
	Centers    []geom.Point
	Hull       []geom.Point // hull of the returned centers, in hull order
	Area       float64      // area of Hull
	Iterations int          // rescaling passes applied
}

// DotHull returns the convex hull of the four bounding-box corners of every
// dot, so the hull bounds the dots' visible extent rather than their centers.
func DotHull(centers []geom.Point, radii []float64) []geom.Point {
	pts := make([]geom.Point, 0, 4*len(centers))
	for i, c := range centers {
		corners := geom.Square(c, radii[i]).Corners()
		pts = append(pts, corners[:]...)
	}
	return geom.ConvexHull(pts)
}

// FitHull rescales centers about the point about so that the area of
// [DotHull] approaches target. Each pass scales by sqrt(target/area); radii are
// unchanged, so the hull's shape shifts slightly and a few passes are needed.
//
// A pass that does not bring the area closer to target is discarded and
// fitting stops. This happens when the hull is dominated by the dots' own
// extent (one dot, or a few large ones), where rescaling the centers cannot
// reach the target.
//
// FitHull never fails. It does not re-check overlap; uniform scaling about a
// point only moves dots apart when the scale exceeds one.
func FitHull(centers []geom.Point, radii []float64, target float64, about geom.Point, opts HullOptions) HullFit {
	out := slices.Clone(centers)
	hull := DotHull(out, radii)
	area := geom.PolygonArea(hull)

	passes := 0
	for passes < opts.Iterations {
		if area == 0 || !(target > 0) {
			break
		}
		if opts.Tolerance > 0 && math.Abs(area-target)/target <= opts.Tolerance {
			break
		}
		scale := math.Sqrt(target / area)
		next := make([]geom.Point, len(out))
		for i, c := range out {
			next[i] = c.ScaleAbout(about, scale)
		}
		if !opts.within(next) {
			break
		}
		nextHull := DotHull(next, radii)
		nextArea := geom.PolygonArea(nextHull)
		if math.Abs(nextArea-target) >= math.Abs(area-target) {
			break
		}
		out, hull, area = next, nextHull, nextArea
		passes++
	}

	return HullFit{Centers: out, Hull: hull, Area: area, Iterations: passes}
}

func (o HullOptions) within(centers []geom.Point) bool {
	if o.Bounds.Max.X <= o.Bounds.Min.X || o.Bounds.Max.Y <= o.Bounds.Min.Y {
		return true
	}
	for _, c := range centers {
		if !o.Bounds.Contains(c) {
			return false
		}
	}
	return true
}
