package dots

import (
	"math"
	"math/rand/v2"

	"github.com/tidwall/rtree"

	"github.com/matzehuels/dotstim/pkg/geom"
)

// sentinel IDs for the square-region edges stored in the index.
const sentinelID = -1

// AttemptState is the state of one dot's placement.
type AttemptState int

const (
	// Attempting means candidates are still being drawn.
	Attempting AttemptState = iota
	// Placed means the dot has a center and its box is in the index.
	Placed
	// Exhausted means the candidate budget ran out.
	Exhausted
)

func (s AttemptState) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Placed:
		return "placed"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Attempt tracks the placement of a single dot.
type Attempt struct {
	Dot            int
	TriesRemaining int
	State          AttemptState
	Center         geom.Point
}

// placer owns the spatial index for one placement run. It is never shared and
// is discarded when Place returns.
type placer struct {
	rng    *rand.Rand
	cfg    Config
	region Region
	radii  []float64
	index  rtree.RTreeG[int]
}

func newPlacer(rng *rand.Rand, cfg Config, radii []float64, region Region) *placer {
	p := &placer{rng: rng, cfg: cfg, region: region, radii: radii}
	if region.Shape == ShapeSquare {
		p.insertSentinels()
	}
	return p
}

// insertSentinels adds four slabs hugging the outside of the square region so
// a single intersection query also enforces the boundary.
func (p *placer) insertSentinels() {
	const far = 1e9
	c, h := p.region.Center, p.region.Size/2
	left, right := c.X-h, c.X+h
	top, bottom := c.Y-h, c.Y+h
	p.index.Insert([2]float64{-far, -far}, [2]float64{left, far}, sentinelID)
	p.index.Insert([2]float64{right, -far}, [2]float64{far, far}, sentinelID)
	p.index.Insert([2]float64{-far, -far}, [2]float64{far, top}, sentinelID)
	p.index.Insert([2]float64{-far, bottom}, [2]float64{far, far}, sentinelID)
}

// budget returns the candidate budget per dot for the region's shape.
func (p *placer) budget() int {
	if p.region.Shape == ShapeSquare {
		return p.cfg.SquareTries
	}
	return p.cfg.CircleTries
}

// start returns the initial attempt for dot i.
func (p *placer) start(i int) Attempt {
	return Attempt{Dot: i, TriesRemaining: p.budget(), State: Attempting}
}

// step draws one candidate for an Attempting dot and returns the next state.
// Candidates are integer pixel positions anywhere on the canvas.
func (p *placer) step(a Attempt) Attempt {
	if a.State != Attempting {
		return a
	}
	if a.TriesRemaining <= 0 {
		a.State = Exhausted
		return a
	}
	a.TriesRemaining--

	r := p.radii[a.Dot]
	c := geom.Pt(float64(p.rng.IntN(p.cfg.Width)), float64(p.rng.IntN(p.cfg.Height)))
	if p.region.Shape == ShapeCircle && c.Distance(p.region.Center) > p.region.Size-r {
		return a
	}

	box := p.cfg.dotBox(c, r)
	lo, hi := [2]float64{box.Min.X, box.Min.Y}, [2]float64{box.Max.X, box.Max.Y}
	hit := false
	p.index.Search(lo, hi, func(_, _ [2]float64, _ int) bool {
		hit = true
		return false
	})
	if hit {
		return a
	}

	p.index.Insert(lo, hi, a.Dot)
	a.Center = c
	a.State = Placed
	return a
}

// place runs dot i to a terminal state.
func (p *placer) place(i int) Attempt {
	a := p.start(i)
	for a.State == Attempting {
		a = p.step(a)
	}
	return a
}

// Place assigns a center to every dot, in input order, such that no two
// margin-inflated bounding boxes intersect and every dot lies inside region.
// Callers usually pass radii largest first.
//
// If any dot exhausts its candidate budget Place returns a *PlacementError and
// no centers; retrying the whole layout is the caller's job.
func Place(rng *rand.Rand, cfg Config, radii []float64, region Region) ([]geom.Point, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, configError("canvas must have positive size, got %dx%d", cfg.Width, cfg.Height)
	}
	if region.Shape != ShapeCircle && region.Shape != ShapeSquare {
		return nil, configError("unknown region shape %q", region.Shape)
	}
	if !(region.Size > 0) || math.IsInf(region.Size, 0) {
		return nil, configError("region size must be positive, got %v", region.Size)
	}

	p := newPlacer(rng, cfg, radii, region)
	centers := make([]geom.Point, len(radii))
	for i := range radii {
		a := p.place(i)
		if a.State == Exhausted {
			return nil, &PlacementError{Dot: i, Placed: i, Tries: p.budget(), Radius: radii[i]}
		}
		centers[i] = a.Center
	}
	return centers, nil
}
