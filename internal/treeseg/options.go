package treeseg

import (
	"github.com/banshee-data/canopy/internal/config"
)

// OptionsFromConfig converts a loaded SegmentationConfig into construction
// and invocation parameters. The config is expected to have passed Validate;
// an unknown direction is still reported as an *InvalidParameterError.
func OptionsFromConfig(cfg *config.SegmentationConfig) (Params, Invocation, error) {
	params := Params{
		Radius:              cfg.GetRadius(),
		VerticalResolution:  cfg.GetVerticalResolution(),
		MinPointsPerCluster: cfg.GetMinPointsPerCluster(),
		BandMinPoints:       cfg.GetBandMinPoints(),
		Index:               IndexKind(cfg.GetSpatialIndex()),
		BruteForceThreshold: cfg.GetBruteForceThreshold(),
		Linker:              LinkerKind(cfg.GetLinker()),
		Workers:             cfg.GetWorkers(),
	}
	dir, err := ParseDirection(cfg.GetDirection())
	if err != nil {
		return Params{}, Invocation{}, err
	}
	if err := params.Validate(); err != nil {
		return Params{}, Invocation{}, err
	}
	return params, Invocation{Direction: dir, Mode: cfg.GetMode()}, nil
}
