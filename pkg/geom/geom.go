// Package geom provides the small amount of planar geometry needed to lay out
// dot stimuli: points, axis-aligned boxes, convex hulls and circle area
// conversions.
package geom

import "math"

// Point is a point (or vector) in canvas coordinates. Y grows downwards, as in
// image space; none of the functions here depend on orientation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// ScaleAbout scales p by s relative to the fixed point c.
func (p Point) ScaleAbout(c Point, s float64) Point {
	return p.Sub(c).Scale(s).Add(c)
}

// Box is an axis-aligned rectangle given by its minimum and maximum corners.
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Square returns the box centered on c with half-width h.
func Square(c Point, h float64) Box {
	return Box{
		Min: Point{X: c.X - h, Y: c.Y - h},
		Max: Point{X: c.X + h, Y: c.Y + h},
	}
}

// Corners returns the four corners of b.
func (b Box) Corners() [4]Point {
	return [4]Point{
		b.Min,
		{X: b.Max.X, Y: b.Min.Y},
		b.Max,
		{X: b.Min.X, Y: b.Max.Y},
	}
}

// Overlaps reports whether a and b share any point, edges included.
func (b Box) Overlaps(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// CircleArea returns the area of a circle with radius r.
func CircleArea(r float64) float64 {
	return math.Pi * r * r
}

// CircleRadius returns the radius of a circle with area a.
func CircleRadius(a float64) float64 {
	return math.Sqrt(a / math.Pi)
}
