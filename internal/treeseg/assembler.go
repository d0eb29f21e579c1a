package treeseg

import "github.com/banshee-data/canopy/internal/pointcloud"

// Tree is an accepted TreeStack with its final ID.
type Tree struct {
	ID        int
	StackID   int
	Points    []int // input indices, ascending
	FirstBand int   // slicing-order index of the first band spanned
	LastBand  int
}

// Size returns the number of points in the tree.
func (t Tree) Size() int { return len(t.Points) }

// Assemble turns closed stacks into trees. Stacks holding fewer than
// minPoints points are rejected and their points stay noise. Surviving
// stacks get IDs 1..k in the order given. The returned labels have length n
// with pointcloud.NoiseLabel for every point outside a tree.
func Assemble(stacks []*TreeStack, n, minPoints int) ([]int, []Tree) {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = pointcloud.NoiseLabel
	}

	var trees []Tree
	for _, s := range stacks {
		if s.PointCount < minPoints {
			s.State = StackRejected
			continue
		}
		s.State = StackAccepted
		s.TreeID = len(trees) + 1

		pts := s.Points()
		for _, idx := range pts {
			labels[idx] = s.TreeID
		}
		trees = append(trees, Tree{
			ID:        s.TreeID,
			StackID:   s.ID,
			Points:    pts,
			FirstBand: s.Clusters[0].Band,
			LastBand:  s.Last().Band,
		})
	}
	return labels, trees
}
