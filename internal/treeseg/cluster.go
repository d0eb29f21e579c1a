package treeseg

import (
	"sort"

	"github.com/banshee-data/canopy/internal/pointcloud"
)

// Cluster is a connected group of points within one band. Its elevation
// range is that of the band.
type Cluster struct {
	Band      int   // slicing-order band index
	Points    []int // input indices, ascending
	CentroidX float64
	CentroidY float64
	ZLow      float64
	ZHigh     float64
}

// Size returns the number of points in the cluster.
func (c *Cluster) Size() int { return len(c.Points) }

// LayerClusterer groups the points of a single band into connected
// components of the planar proximity graph.
type LayerClusterer struct {
	Radius              float64
	MinPoints           int // clusters below this size are discarded
	Index               IndexKind
	BruteForceThreshold int
}

// Cluster returns the band's clusters sorted by centroid X, then Y, then
// lowest point index. Two points are connected when their planar distance is
// at most Radius; connectivity is transitive. An empty band yields a
// *DegenerateBandError.
func (lc LayerClusterer) Cluster(points []pointcloud.Point, band Band) ([]*Cluster, error) {
	if len(band.Points) == 0 {
		return nil, &DegenerateBandError{Band: band.Index}
	}

	n := len(band.Points)
	pts := make([]planar, n)
	for i, idx := range band.Points {
		pts[i] = planar{X: points[idx].X, Y: points[idx].Y}
	}
	index := newSpatialIndex(lc.Index, pts, lc.Radius, lc.BruteForceThreshold)

	labels := make([]int, n) // 0=unvisited, >0=component ID
	componentID := 0
	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		componentID++
		expandComponent(index, labels, i, componentID, lc.Radius)
	}

	minPoints := lc.MinPoints
	if minPoints < 1 {
		minPoints = 1
	}

	members := make([][]int, componentID)
	for i, label := range labels {
		members[label-1] = append(members[label-1], band.Points[i])
	}

	clusters := make([]*Cluster, 0, componentID)
	for _, m := range members {
		if len(m) < minPoints {
			continue
		}
		clusters = append(clusters, newCluster(points, band, m))
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.CentroidX != b.CentroidX {
			return a.CentroidX < b.CentroidX
		}
		if a.CentroidY != b.CentroidY {
			return a.CentroidY < b.CentroidY
		}
		return a.Points[0] < b.Points[0]
	})
	return clusters, nil
}

// expandComponent labels everything reachable from seed with id using a
// queue-based breadth-first expansion. Points are labelled when queued so
// each one is queried once.
func expandComponent(index SpatialIndex, labels []int, seed, id int, eps float64) {
	labels[seed] = id
	queue := []int{seed}

	for j := 0; j < len(queue); j++ {
		for _, pos := range index.RegionQuery(queue[j], eps) {
			if labels[pos] != 0 {
				continue // Already queued
			}
			labels[pos] = id
			queue = append(queue, pos)
		}
	}
}

// newCluster builds a cluster from ascending input indices.
func newCluster(points []pointcloud.Point, band Band, indices []int) *Cluster {
	var sumX, sumY float64
	for _, idx := range indices {
		sumX += points[idx].X
		sumY += points[idx].Y
	}
	n := float64(len(indices))
	return &Cluster{
		Band:      band.Index,
		Points:    indices,
		CentroidX: sumX / n,
		CentroidY: sumY / n,
		ZLow:      band.ZLow,
		ZHigh:     band.ZHigh,
	}
}
