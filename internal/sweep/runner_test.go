package sweep

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy/internal/db"
	"github.com/banshee-data/canopy/internal/monitoring"
	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/synth"
	"github.com/banshee-data/canopy/internal/treeseg"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// twoColumns returns two vertical 10-point columns 5 apart.
func twoColumns() []pointcloud.Point {
	pts := synth.Column(0, 0, 0, 0.2, 10)
	return append(pts, synth.Column(5, 0, 0, 0.2, 10)...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	existing map[Combo]bool
	recorded []treeseg.Params
	failWith error
}

func (f *fakeRecorder) HasRun(source string, params treeseg.Params, inv treeseg.Invocation) (bool, error) {
	return f.existing[Combo{Radius: params.Radius, VerticalResolution: params.VerticalResolution, MinPoints: params.MinPointsPerCluster}], nil
}

func (f *fakeRecorder) Record(source string, params treeseg.Params, res *treeseg.Result, trees []treeseg.TreeSummary) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, params)
	if len(trees) != res.NumTrees {
		return "", fmt.Errorf("got %d summaries for %d trees", len(trees), res.NumTrees)
	}
	return fmt.Sprintf("run-%d", len(f.recorded)), nil
}

func newRunner(rec Recorder) *Runner {
	return &Runner{
		Points:     twoColumns(),
		Source:     "columns.xyz",
		Base:       treeseg.DefaultParams(),
		Invocation: treeseg.Invocation{Direction: treeseg.TopDown},
		Recorder:   rec,
		Workers:    3,
	}
}

func TestRunner_Run(t *testing.T) {
	r := newRunner(nil)
	combos := Combos([]float64{1, 6}, []float64{0.5}, []int{3, 20})

	results, err := r.Run(context.Background(), combos)
	require.NoError(t, err)
	require.Len(t, results, 4)

	type outcome struct{ trees, noise int }
	want := []outcome{
		{2, 0},  // r=1 m=3: one tree per column
		{0, 20}, // r=1 m=20: both columns undersized
		{1, 0},  // r=6 m=3: columns merge
		{1, 0},  // r=6 m=20: merged tree is exactly 20 points
	}
	for i, res := range results {
		require.NoError(t, res.Err, combos[i].String())
		assert.Equal(t, combos[i], res.Combo)
		assert.Equal(t, 20, res.NumPoints)
		assert.Equal(t, want[i], outcome{res.NumTrees, res.NoiseCount}, combos[i].String())
	}
	assert.InDelta(t, 10.0, results[0].MeanTreeSize, 1e-12)
	assert.InDelta(t, 0.0, results[0].StddevTreeSize, 1e-12)

	state := r.GetState()
	assert.Equal(t, SweepStatusComplete, state.Status)
	assert.Equal(t, 4, state.TotalCombos)
	assert.Equal(t, 4, state.CompletedCombos)
	assert.NotNil(t, state.CompletedAt)
}

func TestRunner_InvalidComboDoesNotStopSweep(t *testing.T) {
	r := newRunner(nil)
	combos := Combos([]float64{0, 1}, []float64{0.5}, []int{3})

	results, err := r.Run(context.Background(), combos)
	require.NoError(t, err)

	var ipe *treeseg.InvalidParameterError
	require.True(t, errors.As(results[0].Err, &ipe))
	assert.Equal(t, "radius", ipe.Param)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 2, results[1].NumTrees)
}

func TestRunner_RecordsAndSkips(t *testing.T) {
	rec := &fakeRecorder{existing: map[Combo]bool{
		{Radius: 1, VerticalResolution: 0.5, MinPoints: 3}: true,
	}}
	r := newRunner(rec)
	r.SkipExisting = true
	combos := Combos([]float64{1, 2}, []float64{0.5}, []int{3})

	results, err := r.Run(context.Background(), combos)
	require.NoError(t, err)

	assert.True(t, results[0].Skipped)
	assert.Empty(t, results[0].RunID)
	assert.False(t, results[1].Skipped)
	assert.Equal(t, "run-1", results[1].RunID)

	require.Len(t, rec.recorded, 1)
	assert.Equal(t, 2.0, rec.recorded[0].Radius)
	assert.Equal(t, 3, rec.recorded[0].MinPointsPerCluster)
}

func TestRunner_SkipExistingComparesFixedParams(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer database.Close()
	store := db.NewRunStore(database)
	combos := Combos([]float64{1}, []float64{0.5}, []int{3})

	first := newRunner(store)
	first.SkipExisting = true
	results, err := first.Run(context.Background(), combos)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	require.NotEmpty(t, results[0].RunID)

	tests := []struct {
		name   string
		modify func(r *Runner)
		skip   bool
	}{
		{"identical", func(r *Runner) {}, true},
		{"workers only", func(r *Runner) { r.Base.Workers = 2 }, true},
		{"linker", func(r *Runner) { r.Base.Linker = treeseg.LinkerHungarian }, false},
		{"direction", func(r *Runner) { r.Invocation.Direction = treeseg.BottomUp }, false},
		{"band min points", func(r *Runner) { r.Base.BandMinPoints = 5 }, false},
		{"spatial index", func(r *Runner) { r.Base.Index = treeseg.IndexKDTree }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(store)
			r.SkipExisting = true
			tt.modify(r)

			results, err := r.Run(context.Background(), combos)
			require.NoError(t, err)
			require.NoError(t, results[0].Err)
			assert.Equal(t, tt.skip, results[0].Skipped)
			if tt.skip {
				assert.Empty(t, results[0].RunID)
			} else {
				assert.NotEmpty(t, results[0].RunID)
			}
		})
	}
}

func TestRunner_RecordFailure(t *testing.T) {
	rec := &fakeRecorder{failWith: errors.New("disk full")}
	r := newRunner(rec)

	results, err := r.Run(context.Background(), Combos([]float64{1}, []float64{0.5}, []int{3}))
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "disk full")
	// The separation itself still completed.
	assert.Equal(t, 2, results[0].NumTrees)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRunner(nil)
	combos := Combos([]float64{1, 2}, []float64{0.5}, []int{3})
	results, err := r.Run(ctx, combos)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, ErrNotRun)
	}
	assert.Equal(t, SweepStatusError, r.GetState().Status)
}
