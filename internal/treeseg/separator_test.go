package treeseg

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy/internal/monitoring"
	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/synth"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// twoTrees returns 12 points: two columns 5 apart, 6 points each, spanning
// three unit bands with two points per band per column and no point on a
// band boundary in either direction.
func twoTrees() []pointcloud.Point {
	heights := []float64{0.0, 0.5, 1.25, 1.5, 2.25, 2.75}
	var out []pointcloud.Point
	for _, base := range []float64{0, 5} {
		for i, z := range heights {
			out = append(out, pointcloud.Point{X: base + 0.3*float64(i%2), Y: 0, Z: z})
		}
	}
	return out
}

func unitParams(minPoints int) Params {
	p := DefaultParams()
	p.Radius = 1
	p.VerticalResolution = 1
	p.MinPointsPerCluster = minPoints
	return p
}

func forestParams() Params {
	p := DefaultParams()
	p.Radius = 1
	p.VerticalResolution = 0.7
	p.MinPointsPerCluster = 10
	p.Workers = 4
	return p
}

func mustSeparate(t *testing.T, points []pointcloud.Point, p Params, dir Direction) *Result {
	t.Helper()
	res, err := Separate(context.Background(), points, p, Invocation{Direction: dir})
	require.NoError(t, err)
	return res
}

// canonical relabels trees by order of first appearance so partitions can be
// compared regardless of ID assignment.
func canonical(labels []int) []int {
	next := 1
	seen := map[int]int{}
	out := make([]int, len(labels))
	for i, l := range labels {
		if l == pointcloud.NoiseLabel {
			continue
		}
		if _, ok := seen[l]; !ok {
			seen[l] = next
			next++
		}
		out[i] = seen[l]
	}
	return out
}

// checkPartition asserts every point is in exactly one of noise or a tree and
// that no tree is smaller than minPoints.
func checkPartition(t *testing.T, res *Result, n, minPoints int) {
	t.Helper()
	require.Len(t, res.Labels, n)
	assert.Equal(t, len(res.Trees), res.NumTrees)

	owner := make([]int, n)
	total := 0
	for _, tree := range res.Trees {
		assert.GreaterOrEqual(t, tree.Size(), minPoints, "tree %d", tree.ID)
		for _, idx := range tree.Points {
			require.Zero(t, owner[idx], "point %d in trees %d and %d", idx, owner[idx], tree.ID)
			owner[idx] = tree.ID
			total++
		}
	}
	noise := 0
	for i, l := range res.Labels {
		require.True(t, l >= 0 && l <= res.NumTrees, "label %d out of range", l)
		assert.Equal(t, owner[i], l, "point %d", i)
		if l == pointcloud.NoiseLabel {
			noise++
		}
	}
	assert.Equal(t, noise, res.NoiseCount)
	assert.Equal(t, n, total+noise)
}

func TestSeparate_EndToEnd(t *testing.T) {
	points := twoTrees()
	want := []int{1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2}

	for _, dir := range []Direction{TopDown, BottomUp} {
		for _, index := range []IndexKind{IndexAuto, IndexBrute, IndexGrid, IndexKDTree} {
			for _, linker := range []LinkerKind{LinkerGreedy, LinkerHungarian} {
				p := unitParams(5)
				p.Index = index
				p.Linker = linker
				res := mustSeparate(t, points, p, dir)

				name := dir.String() + "/" + string(index) + "/" + string(linker)
				assert.Equal(t, 2, res.NumTrees, name)
				assert.Equal(t, 0, res.NoiseCount, name)
				assert.Equal(t, 3, res.Bands, name)
				assert.Equal(t, want, res.Labels, name)
				for _, tree := range res.Trees {
					assert.Equal(t, 6, tree.Size(), name)
					assert.Equal(t, 0, tree.FirstBand, name)
					assert.Equal(t, 2, tree.LastBand, name)
				}
				assert.False(t, res.Partial)
				assert.Equal(t, dir, res.Direction)
			}
		}
	}
}

func TestSeparate_UndersizedRejected(t *testing.T) {
	points := []pointcloud.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0.2, Y: 0, Z: 0.2},
		{X: 0, Y: 0.2, Z: 1.5},
		{X: 0.1, Y: 0.1, Z: 1.8},
	}
	res := mustSeparate(t, points, unitParams(5), TopDown)

	assert.Equal(t, 0, res.NumTrees)
	assert.Equal(t, []int{0, 0, 0, 0}, res.Labels)
	assert.Equal(t, 4, res.NoiseCount)
	assert.Equal(t, 2, res.Bands)
	assert.Equal(t, 1, res.Stacks)
}

func TestSeparate_Errors(t *testing.T) {
	points := twoTrees()

	_, err := Separate(context.Background(), nil, unitParams(5), Invocation{})
	assert.True(t, errors.Is(err, ErrEmptyInput))

	tests := []struct {
		param  string
		mutate func(*Params)
	}{
		{"radius", func(p *Params) { p.Radius = 0 }},
		{"radius", func(p *Params) { p.Radius = math.NaN() }},
		{"vertical_resolution", func(p *Params) { p.VerticalResolution = -1 }},
		{"min_points_per_cluster", func(p *Params) { p.MinPointsPerCluster = 0 }},
		{"band_min_points", func(p *Params) { p.BandMinPoints = -1 }},
		{"spatial_index", func(p *Params) { p.Index = "octree" }},
		{"linker", func(p *Params) { p.Linker = "random" }},
		{"workers", func(p *Params) { p.Workers = -1 }},
		{"vertical_resolution", func(p *Params) { p.VerticalResolution = 1e-9 }},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			p := unitParams(5)
			tt.mutate(&p)
			_, err := NewSeparator(points, p)
			var perr *InvalidParameterError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.param, perr.Param)
		})
	}

	bad := append([]pointcloud.Point{}, points...)
	bad[3].Y = math.Inf(1)
	_, err = NewSeparator(bad, unitParams(5))
	var pterr *InvalidPointError
	require.True(t, errors.As(err, &pterr))
	assert.Equal(t, 3, pterr.Index)

	sep, err := NewSeparator(points, unitParams(5))
	require.NoError(t, err)
	res, err := sep.Separate(context.Background(), Invocation{Direction: Direction(3)})
	assert.Nil(t, res)
	var perr *InvalidParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "direction", perr.Param)
}

func TestSeparate_PartitionCompleteness(t *testing.T) {
	points, _ := synth.Forest(synth.DefaultForestParams())

	for _, minPoints := range []int{1, 10, 50, 200} {
		for _, linker := range []LinkerKind{LinkerGreedy, LinkerHungarian} {
			p := forestParams()
			p.MinPointsPerCluster = minPoints
			p.Linker = linker
			for _, dir := range []Direction{TopDown, BottomUp} {
				res := mustSeparate(t, points, p, dir)
				checkPartition(t, res, len(points), minPoints)
			}
		}
	}
}

func TestSeparate_FindsPlantedTrees(t *testing.T) {
	fp := synth.DefaultForestParams()
	fp.NoisePoints = 0
	// Dense enough that no trunk band or crown band comes out empty.
	fp.TrunkPoints = 120
	fp.CrownPoints = 400
	points, truth := synth.Forest(fp)

	res := mustSeparate(t, points, forestParams(), TopDown)
	assert.Equal(t, fp.Rows*fp.Cols, res.NumTrees)

	// Every tree is drawn from a single planted tree.
	for _, tree := range res.Trees {
		origin := truth[tree.Points[0]]
		for _, idx := range tree.Points {
			require.Equal(t, origin, truth[idx], "tree %d mixes planted trees", tree.ID)
		}
	}
}

func TestSeparate_Deterministic(t *testing.T) {
	points, _ := synth.Forest(synth.DefaultForestParams())

	p := forestParams()
	p.Workers = 1
	want := mustSeparate(t, points, p, TopDown)

	for _, workers := range []int{1, 2, 8} {
		p.Workers = workers
		for run := 0; run < 3; run++ {
			got := mustSeparate(t, points, p, TopDown)
			if diff := cmp.Diff(want.Labels, got.Labels); diff != "" {
				t.Fatalf("workers=%d run=%d labels differ (-want +got):\n%s", workers, run, diff)
			}
			if diff := cmp.Diff(want.Trees, got.Trees); diff != "" {
				t.Fatalf("workers=%d run=%d trees differ (-want +got):\n%s", workers, run, diff)
			}
		}
	}
}

func TestSeparate_IndexKindsAgree(t *testing.T) {
	points, _ := synth.Forest(synth.DefaultForestParams())

	p := forestParams()
	p.Index = IndexBrute
	want := mustSeparate(t, points, p, BottomUp)

	for _, kind := range []IndexKind{IndexGrid, IndexKDTree, IndexAuto} {
		p.Index = kind
		got := mustSeparate(t, points, p, BottomUp)
		if diff := cmp.Diff(want.Labels, got.Labels); diff != "" {
			t.Errorf("%s labels differ from brute force (-brute +%s):\n%s", kind, kind, diff)
		}
	}
}

func TestSeparate_DirectionInvariantWhenBandsCoincide(t *testing.T) {
	points := twoTrees()
	up := mustSeparate(t, points, unitParams(5), BottomUp)
	down := mustSeparate(t, points, unitParams(5), TopDown)

	if diff := cmp.Diff(canonical(up.Labels), canonical(down.Labels)); diff != "" {
		t.Errorf("partitions differ (-bottom-up +top-down):\n%s", diff)
	}
}

// Bands are anchored at the lowest point when slicing bottom-up and at the
// highest when slicing top-down, so band contents and therefore partitions
// can differ between directions.
func TestSeparate_DirectionCanChangePartition(t *testing.T) {
	points := []pointcloud.Point{
		{X: 0, Z: 0},     // a
		{X: 0.8, Z: 0.7}, // b
		{X: 1.7, Z: 1.2}, // c
		{X: 1.7, Z: 2.5}, // d
	}
	p := unitParams(1)

	// Bottom-up: {a,b} share band 0; c and d chain through bands 1 and 2.
	up := mustSeparate(t, points, p, BottomUp)
	assert.Equal(t, []int{1, 1, 2, 2}, up.Labels)

	// Top-down: d starts, {b,c} share band 1 and continue it; a is alone.
	down := mustSeparate(t, points, p, TopDown)
	assert.Equal(t, []int{2, 1, 1, 1}, down.Labels)

	assert.NotEqual(t, canonical(up.Labels), canonical(down.Labels))
}

func TestSeparate_NoiseIdempotent(t *testing.T) {
	points := twoTrees()
	points = append(points,
		pointcloud.Point{X: 20, Y: 0, Z: 1},
		pointcloud.Point{X: 20, Y: 5, Z: 2},
		pointcloud.Point{X: 30, Y: 0, Z: 0.1},
		pointcloud.Point{X: 30.2, Y: 0, Z: 0.2},
		pointcloud.Point{X: 30, Y: 0.2, Z: 0.3},
	)
	p := unitParams(5)
	first := mustSeparate(t, points, p, TopDown)
	require.Equal(t, 2, first.NumTrees)
	require.Equal(t, 5, first.NoiseCount)

	var noise []pointcloud.Point
	for i, l := range first.Labels {
		if l == pointcloud.NoiseLabel {
			noise = append(noise, points[i])
		}
	}
	for _, dir := range []Direction{TopDown, BottomUp} {
		second := mustSeparate(t, noise, p, dir)
		assert.Equal(t, 0, second.NumTrees, dir.String())
		assert.Equal(t, len(noise), second.NoiseCount)
	}
}

func TestSeparate_RadiusMonotonic(t *testing.T) {
	// Columns with widening gaps: 1.5, 2, 2.5, 3.
	var points []pointcloud.Point
	for _, x := range []float64{0, 1.5, 3.5, 6, 9} {
		for _, z := range []float64{0.2, 1.5, 2.8} {
			points = append(points,
				pointcloud.Point{X: x, Y: 0, Z: z},
				pointcloud.Point{X: x, Y: 0.2, Z: z},
			)
		}
	}

	radii := []float64{0.5, 1.0, 1.6, 2.1, 2.6, 3.1, 4.0}
	want := []int{5, 5, 4, 3, 2, 1, 1}
	for _, dir := range []Direction{TopDown, BottomUp} {
		prev := math.MaxInt
		for i, r := range radii {
			p := unitParams(1)
			p.Radius = r
			res := mustSeparate(t, points, p, dir)
			assert.Equal(t, want[i], res.NumTrees, "radius %v", r)
			assert.LessOrEqual(t, res.NumTrees, prev, "radius %v", r)
			prev = res.NumTrees
		}
	}
}

// With a minimum tree size above 1 a larger radius can merge two undersized
// groups into one accepted tree, so the tree count may rise.
func TestSeparate_LargerRadiusCanRescueUndersizedGroups(t *testing.T) {
	var points []pointcloud.Point
	for _, x := range []float64{0, 1.5} {
		for _, z := range []float64{0.1, 0.5, 0.9} {
			points = append(points, pointcloud.Point{X: x, Z: z})
		}
	}
	p := unitParams(5)

	assert.Equal(t, 0, mustSeparate(t, points, p, TopDown).NumTrees)

	p.Radius = 2
	assert.Equal(t, 1, mustSeparate(t, points, p, TopDown).NumTrees)
}

func TestSeparate_BandMinPoints(t *testing.T) {
	p := unitParams(5)
	p.BandMinPoints = 3 // every band cluster in twoTrees has two points

	res := mustSeparate(t, twoTrees(), p, TopDown)
	assert.Equal(t, 0, res.NumTrees)
	assert.Equal(t, 12, res.NoiseCount)
	assert.Equal(t, 0, res.Clusters)
}

func TestSeparate_EmptyBandSplitsStack(t *testing.T) {
	points := []pointcloud.Point{
		{Z: 0}, {X: 0.1, Z: 0.2},
		{Z: 2.5}, {X: 0.1, Z: 2.7},
	}
	res := mustSeparate(t, points, unitParams(1), BottomUp)
	assert.Equal(t, 3, res.Bands)
	assert.Equal(t, 1, res.EmptyBands)
	assert.Equal(t, 2, res.NumTrees)
	assert.Equal(t, []int{1, 1, 2, 2}, res.Labels)
}

func TestSeparate_ModeIgnored(t *testing.T) {
	sep, err := NewSeparator(twoTrees(), unitParams(5))
	require.NoError(t, err)

	a, err := sep.Separate(context.Background(), Invocation{Direction: TopDown, Mode: 0})
	require.NoError(t, err)
	b, err := sep.Separate(context.Background(), Invocation{Direction: TopDown, Mode: 7})
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
}

func TestSeparate_Cancelled(t *testing.T) {
	points, _ := synth.Forest(synth.DefaultForestParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Separate(ctx, points, forestParams(), Invocation{Direction: TopDown})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Equal(t, 0, res.NumTrees)
	assert.Equal(t, len(points), res.NoiseCount)
	checkPartition(t, res, len(points), forestParams().MinPointsPerCluster)
}

func TestSeparator_ParamsDefaults(t *testing.T) {
	sep, err := NewSeparator(twoTrees(), Params{Radius: 1, VerticalResolution: 1, MinPointsPerCluster: 1})
	require.NoError(t, err)

	p := sep.Params()
	assert.Equal(t, 1, p.BandMinPoints)
	assert.Equal(t, IndexAuto, p.Index)
	assert.Equal(t, LinkerGreedy, p.Linker)
	assert.Positive(t, p.Workers)
}
