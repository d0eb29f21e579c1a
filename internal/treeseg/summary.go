package treeseg

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/canopy/internal/pointcloud"
)

// TreeSummary describes one tree by its membership only: size, mean position
// and the bands it spans.
type TreeSummary struct {
	ID        int     `json:"id"`
	NumPoints int     `json:"num_points"`
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
	CentroidZ float64 `json:"centroid_z"`
	FirstBand int     `json:"first_band"`
	LastBand  int     `json:"last_band"`
}

// Summarize returns one TreeSummary per tree in res, in tree ID order.
func Summarize(points []pointcloud.Point, res *Result) []TreeSummary {
	out := make([]TreeSummary, 0, len(res.Trees))
	for _, t := range res.Trees {
		xs := make([]float64, len(t.Points))
		ys := make([]float64, len(t.Points))
		zs := make([]float64, len(t.Points))
		for i, idx := range t.Points {
			xs[i], ys[i], zs[i] = points[idx].X, points[idx].Y, points[idx].Z
		}
		out = append(out, TreeSummary{
			ID:        t.ID,
			NumPoints: t.Size(),
			CentroidX: stat.Mean(xs, nil),
			CentroidY: stat.Mean(ys, nil),
			CentroidZ: stat.Mean(zs, nil),
			FirstBand: t.FirstBand,
			LastBand:  t.LastBand,
		})
	}
	return out
}

// SizeStats returns the mean and sample standard deviation of the tree
// sizes in res. Both are 0 when there are no trees; the deviation is 0 for a
// single tree.
func SizeStats(res *Result) (mean, stddev float64) {
	if len(res.Trees) == 0 {
		return 0, 0
	}
	sizes := make([]float64, len(res.Trees))
	for i, t := range res.Trees {
		sizes[i] = float64(t.Size())
	}
	if len(sizes) == 1 {
		return sizes[0], 0
	}
	return stat.MeanStdDev(sizes, nil)
}
