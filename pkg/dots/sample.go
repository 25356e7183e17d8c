package dots

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBinWidthRatio is the bin width, relative to the average area, used
// when no distribution parameter is given.
const DefaultBinWidthRatio = 1.5

// SamplingOptions selects the support of the uniform area distribution.
// Zero values mean "unset". Precedence: MinArea/MaxArea, then StandardDev,
// then BinWidth, then DefaultBinWidthRatio times the average area.
type SamplingOptions struct {
	BinWidth    float64 `json:"bin_width,omitempty" toml:"bin_width"`
	StandardDev float64 `json:"standard_dev,omitempty" toml:"standard_dev"`
	MinArea     float64 `json:"min_area,omitempty" toml:"min_area"`
	MaxArea     float64 `json:"max_area,omitempty" toml:"max_area"`
}

// Validate rejects non-finite values.
func (o SamplingOptions) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"bin_width", o.BinWidth},
		{"standard_dev", o.StandardDev},
		{"min_dot_area", o.MinArea},
		{"max_dot_area", o.MaxArea},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return configError("%s must be a finite number, got %v", f.name, f.v)
		}
	}
	return nil
}

// Bounds resolves the distribution support for the given average area.
// Explicit bounds must straddle the average.
func (o SamplingOptions) Bounds(average float64) (lo, hi float64, err error) {
	if err := o.Validate(); err != nil {
		return 0, 0, err
	}
	switch {
	case o.MinArea != 0 || o.MaxArea != 0:
		lo, hi = o.MinArea, o.MaxArea
		if o.MinArea != 0 && lo >= average {
			return 0, 0, configError("min_dot_area %.2f must be less than the average area %.2f", lo, average)
		}
		if o.MaxArea != 0 && hi <= average {
			return 0, 0, configError("max_dot_area %.2f must be greater than the average area %.2f", hi, average)
		}
		// A single bound is mirrored around the average.
		if o.MaxArea == 0 {
			hi = 2*average - lo
		}
		if o.MinArea == 0 {
			lo = 2*average - hi
		}
		return lo, hi, nil
	case o.StandardDev != 0:
		if o.StandardDev < 0 {
			return 0, 0, configError("standard_dev must be positive, got %v", o.StandardDev)
		}
		// Variance of U(a, b) is (b-a)²/12.
		w := math.Sqrt(12) * o.StandardDev
		return average - w/2, average + w/2, nil
	case o.BinWidth != 0:
		if o.BinWidth < 0 {
			return 0, 0, configError("bin_width must be positive, got %v", o.BinWidth)
		}
		return average - o.BinWidth/2, average + o.BinWidth/2, nil
	default:
		w := DefaultBinWidthRatio * average
		return average - w/2, average + w/2, nil
	}
}

// SampleAreas draws n dot areas uniformly from the configured bin around
// totalArea/n and rescales them so they sum to totalArea.
//
// The bin is validated against cfg.MinDotArea and cfg.MaxDotArea before any
// random number is drawn, including the worst case of rescaling: one draw at
// a bin edge and every other draw at the opposite edge. After rescaling every
// area must still lie strictly inside the absolute bounds; a violation is a
// programming error and panics.
func SampleAreas(rng *rand.Rand, cfg Config, n int, totalArea float64, opts SamplingOptions) ([]float64, error) {
	if n <= 0 {
		return nil, configError("number_of_dots must be positive, got %d", n)
	}
	if !(totalArea > 0) || math.IsInf(totalArea, 0) {
		return nil, configError("total_dot_area must be a positive finite number, got %v", totalArea)
	}

	average := totalArea / float64(n)
	lo, hi, err := opts.Bounds(average)
	if err != nil {
		return nil, err
	}
	if hi > cfg.MaxDotArea {
		return nil, configError("max_dot_area %.2f cannot fit into a %dx%d canvas (limit %.2f; dots=%d total_area=%.1f)",
			hi, cfg.Width, cfg.Height, cfg.MaxDotArea, n, totalArea)
	}
	if lo < cfg.MinDotArea {
		return nil, configError("min_dot_area %.2f is smaller than %.2f (dots=%d total_area=%.1f)",
			lo, cfg.MinDotArea, n, totalArea)
	}

	if low, high := normalizedExtremes(lo, hi, n, average); low <= cfg.MinDotArea || high >= cfg.MaxDotArea {
		return nil, configError("bin [%.2f, %.2f] can normalize to [%.2f, %.2f], outside (%.2f, %.2f) (dots=%d total_area=%.1f)",
			lo, hi, low, high, cfg.MinDotArea, cfg.MaxDotArea, n, totalArea)
	}

	areas := make([]float64, n)
	for i := range areas {
		areas[i] = lo + rng.Float64()*(hi-lo)
	}
	floats.Scale(average/stat.Mean(areas, nil), areas)

	for i, a := range areas {
		if !(a > cfg.MinDotArea && a < cfg.MaxDotArea) {
			panic(fmt.Sprintf("dots: area[%d] = %v outside (%v, %v) after normalization", i, a, cfg.MinDotArea, cfg.MaxDotArea))
		}
	}
	return areas, nil
}

// normalizedExtremes returns the smallest and largest area that rescaling a
// sample from [lo, hi] to the given average can produce.
func normalizedExtremes(lo, hi float64, n int, average float64) (low, high float64) {
	k := float64(n - 1)
	low = lo * float64(n) * average / (lo + k*hi)
	high = hi * float64(n) * average / (hi + k*lo)
	return low, high
}

// TotalArea returns the sum of areas.
func TotalArea(areas []float64) float64 {
	return floats.Sum(areas)
}
