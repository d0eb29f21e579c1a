package treeseg

import (
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Direction is the order in which bands are produced and linked.
type Direction int

const (
	// BottomUp slices from the lowest elevation upward.
	BottomUp Direction = 0
	// TopDown slices from the highest elevation downward.
	TopDown Direction = 1
)

func (d Direction) String() string {
	switch d {
	case BottomUp:
		return "bottom-up"
	case TopDown:
		return "top-down"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts "top-down"/"bottom-up" (any case, '_' or '-') and
// the numeric forms "1"/"0".
func ParseDirection(s string) (Direction, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "top-down", "topdown", "1":
		return TopDown, nil
	case "bottom-up", "bottomup", "0":
		return BottomUp, nil
	}
	return 0, &InvalidParameterError{Param: "direction", Value: s}
}

// IndexKind selects the spatial index used for in-band radius queries.
type IndexKind string

const (
	IndexAuto   IndexKind = "auto"
	IndexGrid   IndexKind = "grid"
	IndexKDTree IndexKind = "kdtree"
	IndexBrute  IndexKind = "brute"
)

// LinkerKind selects how band clusters are assigned to open stacks.
type LinkerKind string

const (
	// LinkerGreedy takes the globally closest remaining stack/cluster pair
	// first.
	LinkerGreedy LinkerKind = "greedy"
	// LinkerHungarian minimises the summed squared centroid distance over
	// all gated pairs.
	LinkerHungarian LinkerKind = "hungarian"
)

// Default parameter values.
const (
	DefaultRadius              = 1.0
	DefaultVerticalResolution  = 0.7
	DefaultMinPointsPerCluster = 3
	DefaultBruteForceThreshold = 64

	// maxBands bounds the band count so a tiny vertical resolution over a
	// tall cloud is rejected up front instead of allocating millions of bands.
	maxBands = 1 << 24
)

// Params are the construction parameters of a Separator.
type Params struct {
	// Radius is the planar proximity threshold used both within a band and
	// between consecutive bands.
	Radius float64
	// VerticalResolution is the band height.
	VerticalResolution float64
	// MinPointsPerCluster is the minimum total point count of a tree.
	MinPointsPerCluster int
	// BandMinPoints discards band clusters smaller than this before linking.
	// Zero is treated as 1 (keep every cluster).
	BandMinPoints int

	Index               IndexKind
	BruteForceThreshold int
	Linker              LinkerKind
	// Workers bounds parallel band clustering; 0 means GOMAXPROCS.
	Workers int
}

// DefaultParams returns Params populated with the package defaults.
func DefaultParams() Params {
	return Params{
		Radius:              DefaultRadius,
		VerticalResolution:  DefaultVerticalResolution,
		MinPointsPerCluster: DefaultMinPointsPerCluster,
		BandMinPoints:       1,
		Index:               IndexAuto,
		BruteForceThreshold: DefaultBruteForceThreshold,
		Linker:              LinkerGreedy,
	}
}

// Validate checks every parameter and returns the first violation as an
// *InvalidParameterError.
func (p Params) Validate() error {
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return &InvalidParameterError{Param: "radius", Value: p.Radius}
	}
	if !(p.VerticalResolution > 0) || math.IsInf(p.VerticalResolution, 0) {
		return &InvalidParameterError{Param: "vertical_resolution", Value: p.VerticalResolution}
	}
	if p.MinPointsPerCluster < 1 {
		return &InvalidParameterError{Param: "min_points_per_cluster", Value: p.MinPointsPerCluster}
	}
	if p.BandMinPoints < 0 {
		return &InvalidParameterError{Param: "band_min_points", Value: p.BandMinPoints}
	}
	switch p.Index {
	case "", IndexAuto, IndexGrid, IndexKDTree, IndexBrute:
	default:
		return &InvalidParameterError{Param: "spatial_index", Value: p.Index}
	}
	if p.BruteForceThreshold < 0 {
		return &InvalidParameterError{Param: "brute_force_threshold", Value: p.BruteForceThreshold}
	}
	switch p.Linker {
	case "", LinkerGreedy, LinkerHungarian:
	default:
		return &InvalidParameterError{Param: "linker", Value: p.Linker}
	}
	if p.Workers < 0 {
		return &InvalidParameterError{Param: "workers", Value: p.Workers}
	}
	return nil
}

// Canonical replaces zero-valued BandMinPoints, Index and Linker with the
// values Separate uses for them, so equivalent Params compare equal.
func (p Params) Canonical() Params {
	if p.BandMinPoints == 0 {
		p.BandMinPoints = 1
	}
	if p.Index == "" {
		p.Index = IndexAuto
	}
	if p.Linker == "" {
		p.Linker = LinkerGreedy
	}
	return p
}

// withDefaults fills zero-valued optional fields. Call after Validate.
func (p Params) withDefaults() Params {
	p = p.Canonical()
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// Invocation holds the per-run parameters of Separate.
type Invocation struct {
	Direction Direction
	// Mode is accepted for compatibility and currently ignored.
	Mode int
}
