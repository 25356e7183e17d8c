package dots

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/dotstim/pkg/geom"
)

func TestDotHullUsesBoxCorners(t *testing.T) {
	// A single dot's hull is its bounding box, not a point.
	hull := DotHull([]geom.Point{geom.Pt(100, 100)}, []float64{10})
	if got := geom.PolygonArea(hull); got != 400 {
		t.Errorf("single dot hull area = %v, want 400", got)
	}

	// Two dots side by side: box spanning both.
	hull = DotHull([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0)}, []float64{5, 5})
	if got := geom.PolygonArea(hull); got != 110*10 {
		t.Errorf("pair hull area = %v, want 1100", got)
	}
}

func TestFitHullNoOpTarget(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	region := RegionForArea(ShapeCircle, 120000, cfg.Center())
	radii := placedRadii(t, 4, 25, 9000)
	centers, err := Place(newRNG(4), cfg, radii, region)
	if err != nil {
		t.Fatal(err)
	}

	current := geom.PolygonArea(DotHull(centers, radii))
	fit := FitHull(centers, radii, current, cfg.Center(), HullOptions{Iterations: 3})
	for i := range centers {
		if d := fit.Centers[i].Distance(centers[i]); d > 1e-9 {
			t.Errorf("center %d moved by %v under a no-op target", i, d)
		}
	}
	if math.Abs(fit.Area-current) > 1e-6*current {
		t.Errorf("area changed from %v to %v", current, fit.Area)
	}
}

func TestFitHullConverges(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	const tolerance = 0.05

	for _, n := range []int{10, 20, 40} {
		for _, target := range []float64{60000, 100000, 140000} {
			t.Run(fmt.Sprintf("n=%d/target=%.0f", n, target), func(t *testing.T) {
				for seed := uint64(1); seed <= 3; seed++ {
					radii := placedRadii(t, seed, n, 6000)
					region := RegionForArea(ShapeCircle, target, cfg.Center())
					centers, err := Place(newRNG(seed), cfg, radii, region)
					if err != nil {
						t.Fatalf("seed %d: %v", seed, err)
					}
					fit := FitHull(centers, radii, target, cfg.Center(), HullOptions{Iterations: DefaultHullIterations})
					if rel := math.Abs(fit.Area-target) / target; rel > tolerance {
						t.Errorf("seed %d: hull area %.0f is %.1f%% from target", seed, fit.Area, 100*rel)
					}
					if fit.Iterations != DefaultHullIterations {
						t.Errorf("iterations = %d, want %d", fit.Iterations, DefaultHullIterations)
					}
				}
			})
		}
	}
}

func TestFitHullToleranceStopsEarly(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	radii := placedRadii(t, 2, 10, 4000)
	centers, err := Place(newRNG(2), cfg, radii, RegionForArea(ShapeCircle, 80000, cfg.Center()))
	if err != nil {
		t.Fatal(err)
	}

	fit := FitHull(centers, radii, 100000, cfg.Center(), HullOptions{Iterations: 50, Tolerance: 1e-3})
	if fit.Iterations >= 50 {
		t.Errorf("tolerance did not stop the loop early (%d passes)", fit.Iterations)
	}
	if rel := math.Abs(fit.Area-100000) / 100000; rel > 1e-3 {
		t.Errorf("relative error %v above tolerance", rel)
	}
}

func TestFitHullDoesNotMutateInput(t *testing.T) {
	centers := []geom.Point{geom.Pt(200, 200), geom.Pt(300, 260), geom.Pt(240, 320)}
	radii := []float64{5, 6, 7}
	orig := append([]geom.Point(nil), centers...)
	FitHull(centers, radii, 50000, geom.Pt(250, 250), HullOptions{Iterations: 3})
	for i := range centers {
		if centers[i] != orig[i] {
			t.Fatalf("input center %d mutated", i)
		}
	}
}

func TestFitHullScalingUpKeepsSeparation(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	radii := placedRadii(t, 8, 15, 4500)
	centers, err := Place(newRNG(8), cfg, radii, RegionForArea(ShapeCircle, 60000, cfg.Center()))
	if err != nil {
		t.Fatal(err)
	}
	fit := FitHull(centers, radii, 150000, cfg.Center(), HullOptions{Iterations: 3})
	assertSeparated(t, cfg, fit.Centers, radii)
}

func TestFitHullShrinkingMovesDotsTogether(t *testing.T) {
	// Shrinking is not checked for overlap; two dots far apart are pulled in.
	centers := []geom.Point{geom.Pt(100, 250), geom.Pt(400, 250)}
	radii := []float64{10, 10}
	fit := FitHull(centers, radii, 2000, geom.Pt(250, 250), HullOptions{Iterations: 3})
	before := centers[0].Distance(centers[1])
	after := fit.Centers[0].Distance(fit.Centers[1])
	if after >= before {
		t.Errorf("distance grew from %v to %v", before, after)
	}
}

func TestFitHullDegenerate(t *testing.T) {
	fit := FitHull(nil, nil, 1000, geom.Pt(0, 0), HullOptions{Iterations: 3})
	if fit.Area != 0 || fit.Iterations != 0 || len(fit.Centers) != 0 {
		t.Errorf("empty layout fit = %+v", fit)
	}
}

func TestFitHullSingleDotUnchanged(t *testing.T) {
	// Scaling a lone center cannot change its hull, so no pass is applied.
	centers := []geom.Point{geom.Pt(260, 240)}
	fit := FitHull(centers, []float64{20}, 140000, geom.Pt(250, 250), HullOptions{Iterations: 3})
	if fit.Iterations != 0 || fit.Centers[0] != centers[0] {
		t.Errorf("fit = %+v, want the input unchanged", fit)
	}
	if fit.Area != 1600 {
		t.Errorf("area = %v, want 1600", fit.Area)
	}
}

func TestFitHullStaysInBounds(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	tests := []struct {
		name    string
		centers []geom.Point
		radii   []float64
		target  float64
	}{
		{"pair", []geom.Point{geom.Pt(230, 250), geom.Pt(280, 250)}, []float64{25, 20}, 140000},
		{"pair square target", []geom.Point{geom.Pt(250, 200), geom.Pt(250, 300)}, []float64{30, 30}, 80000},
		{"triangle", []geom.Point{geom.Pt(240, 240), geom.Pt(270, 250), geom.Pt(250, 275)}, []float64{12, 10, 8}, 240000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := geom.PolygonArea(DotHull(tt.centers, tt.radii))
			fit := FitHull(tt.centers, tt.radii, tt.target, cfg.Center(), HullOptions{Iterations: 3, Bounds: cfg.Bounds()})
			for i, c := range fit.Centers {
				if !cfg.Bounds().Contains(c) {
					t.Errorf("center %d at %v left the canvas", i, c)
				}
			}
			if math.Abs(fit.Area-tt.target) > math.Abs(before-tt.target) {
				t.Errorf("area moved away from target: %v -> %v (target %v)", before, fit.Area, tt.target)
			}
		})
	}
}
