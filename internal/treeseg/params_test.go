package treeseg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy/internal/config"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"top-down", TopDown},
		{"TOP_DOWN", TopDown},
		{"topdown", TopDown},
		{"1", TopDown},
		{"bottom-up", BottomUp},
		{" Bottom_Up ", BottomUp},
		{"0", BottomUp},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDirection("sideways")
	var perr *InvalidParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "direction", perr.Param)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "top-down", TopDown.String())
	assert.Equal(t, "bottom-up", BottomUp.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}

func TestDefaultParamsValid(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
}

func TestOptionsFromConfig(t *testing.T) {
	params, inv, err := OptionsFromConfig(config.MustLoadDefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, DefaultParams(), params)
	assert.Equal(t, TopDown, inv.Direction)
	assert.Equal(t, 1, inv.Mode)
}

// The Get* fallbacks in config must agree with DefaultParams.
func TestOptionsFromEmptyConfigMatchesDefaults(t *testing.T) {
	params, inv, err := OptionsFromConfig(config.EmptySegmentationConfig())
	require.NoError(t, err)

	assert.Equal(t, DefaultParams(), params)
	assert.Equal(t, Invocation{Direction: TopDown, Mode: 1}, inv)
}

func TestParamsCanonical(t *testing.T) {
	p := Params{Radius: 2, VerticalResolution: 0.5, MinPointsPerCluster: 4, Workers: 3}
	got := p.Canonical()

	assert.Equal(t, 1, got.BandMinPoints)
	assert.Equal(t, IndexAuto, got.Index)
	assert.Equal(t, LinkerGreedy, got.Linker)
	assert.Equal(t, 3, got.Workers)
	assert.Equal(t, DefaultParams(), DefaultParams().Canonical())

	p.BandMinPoints = 5
	p.Index = IndexKDTree
	p.Linker = LinkerHungarian
	assert.Equal(t, p, p.Canonical())
}

func TestOptionsFromConfigOverrides(t *testing.T) {
	radius := 2.5
	dir := "bottom-up"
	linker := "hungarian"
	index := "kdtree"
	workers := 3
	cfg := &config.SegmentationConfig{
		Radius:       &radius,
		Direction:    &dir,
		Linker:       &linker,
		SpatialIndex: &index,
		Workers:      &workers,
	}

	params, inv, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2.5, params.Radius)
	assert.Equal(t, 0.7, params.VerticalResolution)
	assert.Equal(t, LinkerHungarian, params.Linker)
	assert.Equal(t, IndexKDTree, params.Index)
	assert.Equal(t, 3, params.Workers)
	assert.Equal(t, BottomUp, inv.Direction)
}

func TestOptionsFromConfigInvalid(t *testing.T) {
	radius := -1.0
	_, _, err := OptionsFromConfig(&config.SegmentationConfig{Radius: &radius})
	var perr *InvalidParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "radius", perr.Param)
}
