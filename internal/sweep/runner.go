package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/canopy/internal/monitoring"
	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/treeseg"
)

// SweepStatus represents the current state of a sweep run
type SweepStatus string

const (
	SweepStatusIdle     SweepStatus = "idle"
	SweepStatusRunning  SweepStatus = "running"
	SweepStatusComplete SweepStatus = "complete"
	SweepStatusError    SweepStatus = "error"
)

// ErrNotRun marks combinations left unevaluated by a cancelled sweep.
var ErrNotRun = errors.New("combination not run")

// Recorder persists sweep runs. db.RunStore satisfies it.
type Recorder interface {
	// HasRun reports whether a complete run of source exists with the same
	// params and direction.
	HasRun(source string, params treeseg.Params, inv treeseg.Invocation) (bool, error)
	Record(source string, params treeseg.Params, res *treeseg.Result, trees []treeseg.TreeSummary) (string, error)
}

// ComboResult holds the summary result for one parameter combination
type ComboResult struct {
	Combo

	RunID          string        `json:"run_id,omitempty"`
	NumPoints      int           `json:"num_points"`
	NumTrees       int           `json:"num_trees"`
	NoiseCount     int           `json:"noise_count"`
	MeanTreeSize   float64       `json:"mean_tree_size"`
	StddevTreeSize float64       `json:"stddev_tree_size"`
	Runtime        time.Duration `json:"runtime"`

	// Skipped is set when the recorder already held a complete run for
	// this combination.
	Skipped bool  `json:"skipped,omitempty"`
	Err     error `json:"-"`
}

// SweepState holds the current state and progress of a sweep
type SweepState struct {
	Status          SweepStatus `json:"status"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	TotalCombos     int         `json:"total_combos"`
	CompletedCombos int         `json:"completed_combos"`
	Error           string      `json:"error,omitempty"`
}

// Runner separates one point cloud under every combination of a parameter
// grid. Combinations run concurrently, up to Workers at a time.
type Runner struct {
	Points []pointcloud.Point
	// Source names the point cloud in recorded runs.
	Source string
	// Base supplies every parameter the grid does not vary.
	Base       treeseg.Params
	Invocation treeseg.Invocation

	// Recorder is optional. When set, every completed run is recorded.
	Recorder     Recorder
	SkipExisting bool

	// Workers bounds concurrent combinations; 0 means 1.
	Workers int

	mu    sync.Mutex
	state SweepState
}

// GetState returns a copy of the current sweep state.
func (r *Runner) GetState() SweepState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run evaluates every combination and returns results in combination order.
// A combination that fails (for example with invalid parameters) records its
// error in ComboResult.Err and does not stop the sweep. Cancelling ctx does:
// Run returns the results gathered so far with ctx's error, and combinations
// that never started carry ErrNotRun.
func (r *Runner) Run(ctx context.Context, combos []Combo) ([]ComboResult, error) {
	now := time.Now()
	r.mu.Lock()
	r.state = SweepState{Status: SweepStatusRunning, StartedAt: &now, TotalCombos: len(combos)}
	r.mu.Unlock()

	results := make([]ComboResult, len(combos))
	for i, c := range combos {
		results[i] = ComboResult{Combo: c, NumPoints: len(r.Points), Err: ErrNotRun}
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range combos {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := r.runCombo(gctx, c)
			results[i] = res
			if res.Err != nil && gctx.Err() != nil && errors.Is(res.Err, gctx.Err()) {
				return res.Err
			}
			r.mu.Lock()
			r.state.CompletedCombos++
			done := r.state.CompletedCombos
			r.mu.Unlock()
			switch {
			case res.Skipped:
				monitoring.Logf("[sweep] %d/%d %s: skipped (already recorded)", done, len(combos), c)
			case res.Err != nil:
				monitoring.Logf("[sweep] %d/%d %s: %v", done, len(combos), c, res.Err)
			default:
				monitoring.Logf("[sweep] %d/%d %s: trees=%d noise=%d (%s)",
					done, len(combos), c, res.NumTrees, res.NoiseCount, res.Runtime.Round(time.Millisecond))
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	completed := time.Now()
	r.mu.Lock()
	r.state.CompletedAt = &completed
	if err != nil {
		r.state.Status = SweepStatusError
		r.state.Error = err.Error()
	} else {
		r.state.Status = SweepStatusComplete
	}
	r.mu.Unlock()

	if err != nil {
		return results, fmt.Errorf("sweep aborted: %w", err)
	}
	return results, nil
}

func (r *Runner) runCombo(ctx context.Context, c Combo) ComboResult {
	out := ComboResult{Combo: c, NumPoints: len(r.Points)}

	params := r.Base
	params.Radius = c.Radius
	params.VerticalResolution = c.VerticalResolution
	params.MinPointsPerCluster = c.MinPoints

	if r.Recorder != nil && r.SkipExisting {
		exists, err := r.Recorder.HasRun(r.Source, params, r.Invocation)
		if err != nil {
			out.Err = fmt.Errorf("check existing run: %w", err)
			return out
		}
		if exists {
			out.Skipped = true
			return out
		}
	}

	start := time.Now()
	res, err := treeseg.Separate(ctx, r.Points, params, r.Invocation)
	out.Runtime = time.Since(start)
	if err != nil {
		out.Err = err
		return out
	}

	out.NumTrees = res.NumTrees
	out.NoiseCount = res.NoiseCount
	out.MeanTreeSize, out.StddevTreeSize = treeseg.SizeStats(res)

	if r.Recorder != nil {
		id, err := r.Recorder.Record(r.Source, params, res, treeseg.Summarize(r.Points, res))
		if err != nil {
			out.Err = fmt.Errorf("record run: %w", err)
			return out
		}
		out.RunID = id
	}
	return out
}
