package treeseg

import (
	"sort"
)

// StackState is the lifecycle state of a TreeStack.
type StackState string

const (
	StackOpen     StackState = "open"     // accepting clusters from the next band
	StackClosed   StackState = "closed"   // vertical extent final
	StackAccepted StackState = "accepted" // became a tree
	StackRejected StackState = "rejected" // folded into noise
)

// TreeStack is a vertical chain of clusters, at most one per band, believed
// to belong to one crown.
type TreeStack struct {
	ID         int // creation order, starting at 1
	State      StackState
	Clusters   []*Cluster
	PointCount int
	TreeID     int // set when accepted
}

// Last returns the most recently linked cluster.
func (s *TreeStack) Last() *Cluster {
	return s.Clusters[len(s.Clusters)-1]
}

// Points returns the union of the member clusters' point indices, ascending.
func (s *TreeStack) Points() []int {
	out := make([]int, 0, s.PointCount)
	for _, c := range s.Clusters {
		out = append(out, c.Points...)
	}
	sort.Ints(out)
	return out
}

func (s *TreeStack) add(c *Cluster) {
	s.Clusters = append(s.Clusters, c)
	s.PointCount += c.Size()
}

// Linker chains band clusters into TreeStacks. Bands must be fed strictly in
// slicing order.
type Linker struct {
	radius   float64
	strategy LinkerKind

	open      []*TreeStack // creation order
	finalized []*TreeStack // closing order
	nextID    int
}

// NewLinker returns a Linker gating matches at radius.
func NewLinker(radius float64, strategy LinkerKind) *Linker {
	if strategy == "" {
		strategy = LinkerGreedy
	}
	return &Linker{radius: radius, strategy: strategy, nextID: 1}
}

// Link consumes the clusters of the next band. Each cluster continues the
// open stack chosen by MatchClusters or starts a new stack; open stacks that
// receive nothing are closed. An empty band closes every open stack.
func (l *Linker) Link(clusters []*Cluster) {
	assign := MatchClusters(l.open, clusters, l.radius, l.strategy)

	matched := make([]bool, len(l.open))
	for ci, si := range assign {
		if si >= 0 {
			l.open[si].add(clusters[ci])
			matched[si] = true
		}
	}

	stillOpen := make([]*TreeStack, 0, len(l.open)+len(clusters))
	for si, s := range l.open {
		if matched[si] {
			stillOpen = append(stillOpen, s)
			continue
		}
		s.State = StackClosed
		l.finalized = append(l.finalized, s)
	}

	for ci, si := range assign {
		if si >= 0 {
			continue
		}
		s := &TreeStack{ID: l.nextID, State: StackOpen}
		l.nextID++
		s.add(clusters[ci])
		stillOpen = append(stillOpen, s)
	}
	l.open = stillOpen
}

// OpenStacks returns the number of stacks still accepting clusters.
func (l *Linker) OpenStacks() int { return len(l.open) }

// Finish closes every remaining open stack and returns all stacks in
// finalization order. Stacks closed together keep creation order.
func (l *Linker) Finish() []*TreeStack {
	for _, s := range l.open {
		s.State = StackClosed
		l.finalized = append(l.finalized, s)
	}
	l.open = nil
	return l.finalized
}

// MatchClusters assigns each cluster to at most one stack and each stack to
// at most one cluster. A pair is eligible when the cluster centroid lies
// within radius of the centroid of the stack's last cluster. It returns, per
// cluster, the index into stacks it continues, or -1.
//
// LinkerGreedy takes eligible pairs in order of increasing distance; ties go
// to the earlier stack, then the earlier cluster. LinkerHungarian minimises
// the summed squared distance over the matched pairs.
func MatchClusters(stacks []*TreeStack, clusters []*Cluster, radius float64, strategy LinkerKind) []int {
	assign := make([]int, len(clusters))
	for i := range assign {
		assign[i] = -1
	}
	if len(stacks) == 0 || len(clusters) == 0 {
		return assign
	}

	r2 := radius * radius
	if strategy == LinkerHungarian {
		cost := make([][]float64, len(clusters))
		for ci, c := range clusters {
			cost[ci] = make([]float64, len(stacks))
			for si, s := range stacks {
				d2 := centroidDist2(s.Last(), c)
				if d2 > r2 {
					d2 = hungarianInf
				}
				cost[ci][si] = d2
			}
		}
		return hungarianAssign(cost)
	}

	type candidate struct {
		stack, cluster int
		d2             float64
	}
	var pairs []candidate
	for si, s := range stacks {
		last := s.Last()
		for ci, c := range clusters {
			if d2 := centroidDist2(last, c); d2 <= r2 {
				pairs = append(pairs, candidate{stack: si, cluster: ci, d2: d2})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].d2 != pairs[j].d2 {
			return pairs[i].d2 < pairs[j].d2
		}
		if pairs[i].stack != pairs[j].stack {
			return pairs[i].stack < pairs[j].stack
		}
		return pairs[i].cluster < pairs[j].cluster
	})

	stackUsed := make([]bool, len(stacks))
	for _, p := range pairs {
		if stackUsed[p.stack] || assign[p.cluster] >= 0 {
			continue
		}
		stackUsed[p.stack] = true
		assign[p.cluster] = p.stack
	}
	return assign
}

func centroidDist2(a, b *Cluster) float64 {
	dx := a.CentroidX - b.CentroidX
	dy := a.CentroidY - b.CentroidY
	return dx*dx + dy*dy
}
