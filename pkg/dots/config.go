package dots

import (
	"math"

	"github.com/matzehuels/dotstim/pkg/geom"
)

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 500

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = 500

	// DefaultMinDotArea is one pixel's worth of area.
	DefaultMinDotArea = 1.0

	// DefaultSquareTries is the per-dot candidate budget for square regions.
	DefaultSquareTries = 10_000

	// DefaultCircleTries is the per-dot candidate budget for circle regions.
	// Circles leave more room at the rim, so candidates are rejected more often.
	DefaultCircleTries = 100_000

	// DefaultMargin inflates each dot's bounding box to Margin*r half-width so
	// that dots never visually touch.
	DefaultMargin = 1.5

	// DefaultHullIterations is the number of hull rescaling passes.
	DefaultHullIterations = 3
)

// Config holds canvas-wide constants shared by every stage. It is a value:
// build it once with [NewConfig] and pass it down.
type Config struct {
	Width  int
	Height int

	// MinDotArea and MaxDotArea are the absolute bounds every sampled area
	// must lie strictly within.
	MinDotArea float64
	MaxDotArea float64

	SquareTries int
	CircleTries int
	Margin      float64

	HullIterations int
	// HullTolerance stops hull fitting early once the relative area error is
	// at most this value. Zero always runs HullIterations passes.
	HullTolerance float64
}

// NewConfig returns the default configuration for a width×height canvas.
// MaxDotArea is the area of the largest circle that fits the canvas.
func NewConfig(width, height int) Config {
	return Config{
		Width:          width,
		Height:         height,
		MinDotArea:     DefaultMinDotArea,
		MaxDotArea:     geom.CircleArea(float64(min(width, height)) / 2),
		SquareTries:    DefaultSquareTries,
		CircleTries:    DefaultCircleTries,
		Margin:         DefaultMargin,
		HullIterations: DefaultHullIterations,
	}
}

// Center returns the canvas center.
func (c Config) Center() geom.Point {
	return geom.Pt(float64(c.Width)/2, float64(c.Height)/2)
}

// Bounds returns the canvas rectangle.
func (c Config) Bounds() geom.Box {
	return geom.Box{Max: geom.Pt(float64(c.Width), float64(c.Height))}
}

// Shape is the kind of enclosing region used during placement.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
)

// Region bounds candidate centers during placement. Size is the radius for
// circles and the side length for squares.
type Region struct {
	Shape  Shape      `json:"shape"`
	Size   float64    `json:"size"`
	Center geom.Point `json:"center"`
}

// RegionForArea returns the region of the given shape whose area equals area,
// centered on c.
func RegionForArea(shape Shape, area float64, c geom.Point) Region {
	size := math.Sqrt(area)
	if shape == ShapeCircle {
		size = geom.CircleRadius(area)
	}
	return Region{Shape: shape, Size: size, Center: c}
}

// Area returns the region's area.
func (r Region) Area() float64 {
	if r.Shape == ShapeCircle {
		return geom.CircleArea(r.Size)
	}
	return r.Size * r.Size
}

// Radii converts areas to circle radii.
func Radii(areas []float64) []float64 {
	radii := make([]float64, len(areas))
	for i, a := range areas {
		radii[i] = geom.CircleRadius(a)
	}
	return radii
}

// dotBox returns the margin-inflated bounding box used for collision queries.
func (c Config) dotBox(center geom.Point, r float64) geom.Box {
	return geom.Square(center, c.Margin*r)
}
