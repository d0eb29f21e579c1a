package treeseg

import (
	"math"

	"github.com/banshee-data/canopy/internal/pointcloud"
)

// Band is one horizontal slice of the point cloud. Index is the position in
// slicing order; Points are input indices in ascending order.
type Band struct {
	Index  int
	ZLow   float64
	ZHigh  float64
	Points []int
}

// bandCount returns ceil((zMax-zMin)/v), at least 1.
func bandCount(zMin, zMax, v float64) (int, error) {
	span := (zMax - zMin) / v
	if span > maxBands || math.IsInf(span, 0) || math.IsNaN(span) {
		return 0, &InvalidParameterError{Param: "vertical_resolution", Value: v}
	}
	n := int(math.Ceil(span))
	if n < 1 {
		n = 1
	}
	return n, nil
}

// Slice partitions points into bands of height v, ordered by dir. Bottom-up
// bands are anchored at the minimum elevation and top-down bands at the
// maximum, so only the last band in slicing order may be narrower than v.
// A point on a boundary between two bands goes to the one visited first.
func Slice(points []pointcloud.Point, v float64, dir Direction) ([]Band, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return nil, &InvalidParameterError{Param: "vertical_resolution", Value: v}
	}
	if dir != TopDown && dir != BottomUp {
		return nil, &InvalidParameterError{Param: "direction", Value: int(dir)}
	}

	lo, hi, _ := pointcloud.Bounds(points)
	zMin, zMax := lo.Z, hi.Z
	n, err := bandCount(zMin, zMax, v)
	if err != nil {
		return nil, err
	}

	bands := make([]Band, n)
	for i := range bands {
		bands[i].Index = i
		if dir == BottomUp {
			bands[i].ZLow = zMin + float64(i)*v
			bands[i].ZHigh = math.Min(zMin+float64(i+1)*v, zMax)
		} else {
			bands[i].ZLow = math.Max(zMax-float64(i+1)*v, zMin)
			bands[i].ZHigh = zMax - float64(i)*v
		}
	}

	for i, p := range points {
		b := bandOf(p.Z, zMin, zMax, v, dir, n)
		bands[b].Points = append(bands[b].Points, i)
	}
	return bands, nil
}

// bandOf returns the slicing-order band index of elevation z. The offset
// from the anchor is divided by v and rounded up, so an exact multiple of v
// lands in the earlier band.
func bandOf(z, zMin, zMax, v float64, dir Direction, n int) int {
	offset := z - zMin
	if dir == TopDown {
		offset = zMax - z
	}
	b := int(math.Ceil(offset/v)) - 1
	if b < 0 {
		b = 0
	}
	if b >= n {
		b = n - 1
	}
	return b
}
