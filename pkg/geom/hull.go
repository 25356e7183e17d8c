package geom

import (
	"cmp"
	"math"
	"slices"
)

// ConvexHull returns the convex hull of points using Andrew's monotone chain.
// Vertices are returned counter-clockwise (in a Y-up frame) starting from the
// lowest-X point, without collinear or duplicate vertices. Inputs with fewer
// than three distinct points return those points.
func ConvexHull(points []Point) []Point {
	pts := slices.Clone(points)
	slices.SortFunc(pts, func(a, b Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return pts
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// The last point repeats the first.
	return hull[:len(hull)-1]
}

// PolygonArea returns the unsigned area of a simple polygon given by its
// vertices in order. Fewer than three vertices have zero area.
func PolygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// cross returns the z component of (b-a)×(c-a); positive for a left turn.
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
