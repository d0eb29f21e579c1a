package synth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForest_CountsAndTruth(t *testing.T) {
	p := DefaultForestParams()
	points, truth := Forest(p)

	perTree := p.TrunkPoints + p.CrownPoints
	want := p.Rows*p.Cols*perTree + p.NoisePoints
	require.Len(t, points, want)
	require.Len(t, truth, want)

	counts := map[int]int{}
	for _, id := range truth {
		counts[id]++
	}
	assert.Equal(t, p.NoisePoints, counts[0])
	for id := 1; id <= p.Rows*p.Cols; id++ {
		assert.Equal(t, perTree, counts[id], "tree %d", id)
	}
}

func TestForest_Deterministic(t *testing.T) {
	p := DefaultForestParams()
	a, _ := Forest(p)
	b, _ := Forest(p)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Forest not deterministic (-first +second):\n%s", diff)
	}

	p.Seed = 2
	c, _ := Forest(p)
	assert.NotEqual(t, a, c)
}

func TestForest_PointsWithinStand(t *testing.T) {
	p := DefaultForestParams()
	points, _ := Forest(p)
	minX, minY, maxX, maxY := Bounds(p)
	for i, pt := range points {
		assert.True(t, pt.X >= minX && pt.X <= maxX, "point %d x=%v", i, pt.X)
		assert.True(t, pt.Y >= minY && pt.Y <= maxY, "point %d y=%v", i, pt.Y)
		assert.True(t, pt.Z >= 0 && pt.Z <= p.TrunkHeight+p.CrownHeight, "point %d z=%v", i, pt.Z)
	}
}

func TestColumn(t *testing.T) {
	col := Column(1, 2, 0.5, 0.25, 3)
	require.Len(t, col, 3)
	assert.Equal(t, 0.5, col[0].Z)
	assert.Equal(t, 1.0, col[2].Z)
	assert.Equal(t, 1.0, col[1].X)
	assert.Equal(t, 2.0, col[1].Y)
}
