package treeseg

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a band point stored in the k-d tree together with its position.
type kdPoint struct {
	planar
	pos int
}

func (p kdPoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.X
	}
	return p.Y
}

// Compare implements kdtree.Comparable.
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(kdPoint).coord(d)
}

// Dims implements kdtree.Comparable.
func (p kdPoint) Dims() int { return 2 }

// Distance implements kdtree.Comparable and returns the squared planar
// distance.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{kdPoints: p, Dim: d}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane sorts kdPoints along one dimension for median selection.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].coord(p.Dim) < p.kdPoints[j].coord(p.Dim)
}
func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// KDTreeIndex answers radius queries with a gonum k-d tree.
type KDTreeIndex struct {
	tree *kdtree.Tree
	pts  []planar
}

// newKDTreeIndex builds a balanced k-d tree over pts.
func newKDTreeIndex(pts []planar) *KDTreeIndex {
	nodes := make(kdPoints, len(pts))
	for i, p := range pts {
		nodes[i] = kdPoint{planar: p, pos: i}
	}
	// kdtree.New reorders nodes in place; positions travel with the points.
	return &KDTreeIndex{tree: kdtree.New(nodes, false), pts: pts}
}

// RegionQuery implements SpatialIndex.
func (k *KDTreeIndex) RegionQuery(i int, eps float64) []int {
	p := k.pts[i]
	eps2 := eps * eps
	keep := kdtree.NewDistKeeper(eps2)
	k.tree.NearestSet(keep, kdPoint{planar: p, pos: i})

	neighbors := make([]int, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		// The keeper may retain its sentinel entry.
		q, ok := cd.Comparable.(kdPoint)
		if !ok {
			continue
		}
		if within(p, q.planar, eps2) {
			neighbors = append(neighbors, q.pos)
		}
	}
	return neighbors
}
