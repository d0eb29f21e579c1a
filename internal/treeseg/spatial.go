package treeseg

import (
	"math"
)

const (
	// estimatedPointsPerCell is used for initial grid capacity estimation.
	estimatedPointsPerCell = 4
	// gridCellPad makes default grid cells slightly wider than the query
	// radius so a 3x3 neighbourhood always covers it.
	gridCellPad = 1 + 1e-9
)

// planar is the horizontal projection of a band point.
type planar struct {
	X, Y float64
}

// SpatialIndex answers planar radius queries over a fixed set of points.
// Positions are indices into the slice the index was built from.
type SpatialIndex interface {
	// RegionQuery returns the positions of all points within eps of the
	// point at position i, including i itself. Distance is 2D Euclidean and
	// the comparison is inclusive.
	RegionQuery(i int, eps float64) []int
}

// within reports whether a and b are no more than sqrt(eps2) apart. Every
// index uses this exact test so they agree on boundary points.
func within(a, b planar, eps2 float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx+dy*dy <= eps2
}

// newSpatialIndex builds the index selected by kind. IndexAuto uses a
// brute-force scan for sets of at most threshold points and a grid otherwise.
func newSpatialIndex(kind IndexKind, pts []planar, eps float64, threshold int) SpatialIndex {
	switch kind {
	case IndexBrute:
		return newBruteForceIndex(pts)
	case IndexGrid:
		return newGridIndex(pts, eps*gridCellPad)
	case IndexKDTree:
		return newKDTreeIndex(pts)
	default:
		if len(pts) <= threshold {
			return newBruteForceIndex(pts)
		}
		return newGridIndex(pts, eps*gridCellPad)
	}
}

// BruteForceIndex compares the query point against every point.
type BruteForceIndex struct {
	pts []planar
}

// newBruteForceIndex wraps pts without preprocessing.
func newBruteForceIndex(pts []planar) *BruteForceIndex {
	return &BruteForceIndex{pts: pts}
}

// RegionQuery implements SpatialIndex.
func (b *BruteForceIndex) RegionQuery(i int, eps float64) []int {
	p := b.pts[i]
	eps2 := eps * eps
	neighbors := []int{}
	for j, q := range b.pts {
		if within(p, q, eps2) {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// GridIndex buckets points into square cells so a query only visits the
// cells that can hold neighbours.
type GridIndex struct {
	CellSize float64
	Grid     map[int64][]int // Cell ID → point positions
	pts      []planar
}

// newGridIndex builds a grid with the given cell size over pts. The cell size
// should approximately match the query radius.
func newGridIndex(pts []planar, cellSize float64) *GridIndex {
	g := &GridIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int, len(pts)/estimatedPointsPerCell),
		pts:      pts,
	}
	for i, p := range pts {
		cx, cy := g.cellCoords(p)
		id := cellKey(cx, cy)
		g.Grid[id] = append(g.Grid[id], i)
	}
	return g
}

func (g *GridIndex) cellCoords(p planar) (int64, int64) {
	return int64(math.Floor(p.X / g.CellSize)), int64(math.Floor(p.Y / g.CellSize))
}

// cellKey computes a unique cell identifier using Szudzik's pairing function.
// Handles negative coordinates correctly.
func cellKey(cellX, cellY int64) int64 {
	// Map signed integers to non-negative using zigzag encoding
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// RegionQuery implements SpatialIndex.
func (g *GridIndex) RegionQuery(i int, eps float64) []int {
	p := g.pts[i]
	neighbors := []int{}
	eps2 := eps * eps // Use squared distance to avoid sqrt

	cellX, cellY := g.cellCoords(p)
	// A neighbour within eps is at most floor(eps/CellSize)+1 cells away.
	rings := int64(math.Floor(eps/g.CellSize)) + 1

	for dx := -rings; dx <= rings; dx++ {
		for dy := -rings; dy <= rings; dy++ {
			for _, j := range g.Grid[cellKey(cellX+dx, cellY+dy)] {
				if within(p, g.pts[j], eps2) {
					neighbors = append(neighbors, j)
				}
			}
		}
	}

	return neighbors
}
