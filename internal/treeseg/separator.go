package treeseg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/canopy/internal/monitoring"
	"github.com/banshee-data/canopy/internal/pointcloud"
)

// Result is the outcome of one separation run.
type Result struct {
	// Labels holds a tree ID per input point; 0 is noise.
	Labels     []int
	NumTrees   int
	Trees      []Tree
	NoiseCount int

	Bands      int // bands produced by the slicer
	EmptyBands int // bands skipped because they held no points
	Clusters   int // band clusters handed to the linker
	Stacks     int // stacks built, accepted or not

	Direction Direction
	// Partial is set when the run was cancelled; points in bands that were
	// never linked are labelled noise.
	Partial bool
	Elapsed time.Duration
}

// Separator holds a validated point set and parameters. It may be used for
// any number of Separate calls, including concurrent ones.
type Separator struct {
	points []pointcloud.Point
	params Params
}

// NewSeparator validates params and points. All parameter and input errors
// surface here, before any clustering work.
func NewSeparator(points []pointcloud.Point, params Params) (*Separator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, &InvalidPointError{Index: i}
		}
	}
	lo, hi, _ := pointcloud.Bounds(points)
	if _, err := bandCount(lo.Z, hi.Z, params.VerticalResolution); err != nil {
		return nil, err
	}
	return &Separator{points: points, params: params.withDefaults()}, nil
}

// Params returns the effective parameters, defaults applied.
func (s *Separator) Params() Params { return s.params }

// Separate runs the full pipeline. Bands are clustered in parallel by up to
// Params.Workers goroutines and linked one at a time in slicing order.
//
// ctx is checked between bands. On cancellation Separate returns the partial
// Result built from the bands linked so far together with an error wrapping
// ctx.Err().
func (s *Separator) Separate(ctx context.Context, inv Invocation) (*Result, error) {
	start := time.Now()

	bands, err := Slice(s.points, s.params.VerticalResolution, inv.Direction)
	if err != nil {
		return nil, err
	}

	clusterer := LayerClusterer{
		Radius:              s.params.Radius,
		MinPoints:           s.params.BandMinPoints,
		Index:               s.params.Index,
		BruteForceThreshold: s.params.BruteForceThreshold,
	}

	type bandResult struct {
		clusters []*Cluster
		err      error
	}
	results := make([]bandResult, len(bands))
	ready := make([]chan struct{}, len(bands))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.Workers)

	// Producer: launch band workers in slicing order so the earliest bands,
	// which the linker needs first, are scheduled first.
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i := range bands {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				defer close(ready[i])
				clusters, err := clusterer.Cluster(s.points, bands[i])
				results[i] = bandResult{clusters: clusters, err: err}
				return nil
			})
		}
	}()

	res := &Result{Bands: len(bands), Direction: inv.Direction}
	linker := NewLinker(s.params.Radius, s.params.Linker)

	var runErr error
	linked := 0
	for i := range bands {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		select {
		case <-ready[i]:
		case <-gctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}

		br := results[i]
		results[i] = bandResult{}
		var degenerate *DegenerateBandError
		if errors.As(br.err, &degenerate) {
			monitoring.Logf("[treeseg] skipping empty band %d (%s)", degenerate.Band, inv.Direction)
			res.EmptyBands++
		} else if br.err != nil {
			runErr = br.err
			break
		}
		res.Clusters += len(br.clusters)
		linker.Link(br.clusters)
		linked++
	}

	<-launched
	_ = g.Wait() // workers never fail; Wait only joins them

	stacks := linker.Finish()
	res.Stacks = len(stacks)
	res.Labels, res.Trees = Assemble(stacks, len(s.points), s.params.MinPointsPerCluster)
	res.NumTrees = len(res.Trees)
	for _, l := range res.Labels {
		if l == pointcloud.NoiseLabel {
			res.NoiseCount++
		}
	}
	res.Elapsed = time.Since(start)

	if runErr != nil {
		res.Partial = true
		monitoring.Logf("[treeseg] run aborted after %d of %d bands: %v", linked, len(bands), runErr)
		return res, fmt.Errorf("separate trees: %w", runErr)
	}

	monitoring.Logf("[treeseg] %d points, %d bands (%d empty), %d clusters, %d stacks -> %d trees, %d noise in %v",
		len(s.points), res.Bands, res.EmptyBands, res.Clusters, res.Stacks, res.NumTrees, res.NoiseCount, res.Elapsed)
	return res, nil
}

// Separate validates its inputs and runs one separation. It is shorthand for
// NewSeparator followed by Separator.Separate.
func Separate(ctx context.Context, points []pointcloud.Point, params Params, inv Invocation) (*Result, error) {
	sep, err := NewSeparator(points, params)
	if err != nil {
		return nil, err
	}
	return sep.Separate(ctx, inv)
}
