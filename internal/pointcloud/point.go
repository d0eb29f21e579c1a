// Package pointcloud holds the point type shared by the segmentation
// packages together with readers and writers for whitespace-delimited XYZ
// files.
//
// Points are identified by their position in the slice returned by the
// reader; every later stage carries indices, never copies.
package pointcloud

import "math"

// Point is an immutable 3D coordinate in the input frame (typically metres
// or millimetres, whatever the source file uses).
type Point struct {
	X, Y, Z float64
}

// IsFinite reports whether all three coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Bounds returns the axis-aligned bounding box of points.
// ok is false for an empty slice.
func Bounds(points []Point) (min, max Point, ok bool) {
	if len(points) == 0 {
		return Point{}, Point{}, false
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max, true
}

// Subset returns the points at the given indices, in index order.
func Subset(points []Point, indices []int) []Point {
	out := make([]Point, len(indices))
	for i, idx := range indices {
		out[i] = points[idx]
	}
	return out
}
