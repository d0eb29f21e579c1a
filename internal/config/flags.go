package config

import "flag"

// FlagOverrides holds segmentation flags registered on a FlagSet. Only the
// flags the user actually set are copied onto a config by Apply, so a value
// from a config file survives unless overridden on the command line.
type FlagOverrides struct {
	fs *flag.FlagSet

	radius              *float64
	verticalResolution  *float64
	minPointsPerCluster *int
	bandMinPoints       *int
	direction           *string
	mode                *int
	spatialIndex        *string
	bruteForceThreshold *int
	linker              *string
	workers             *int
	timeout             *string
}

// RegisterFlags registers the segmentation flags on fs. Flag defaults show
// the built-in defaults.
func RegisterFlags(fs *flag.FlagSet) *FlagOverrides {
	d := EmptySegmentationConfig()
	return &FlagOverrides{
		fs:                  fs,
		radius:              fs.Float64("radius", d.GetRadius(), "Planar proximity threshold in metres"),
		verticalResolution:  fs.Float64("vres", d.GetVerticalResolution(), "Band height in metres"),
		minPointsPerCluster: fs.Int("min-points", d.GetMinPointsPerCluster(), "Minimum points for an accepted tree"),
		bandMinPoints:       fs.Int("band-min-points", d.GetBandMinPoints(), "Minimum points for a band cluster to be linked"),
		direction:           fs.String("direction", d.GetDirection(), "Slicing direction: top-down or bottom-up"),
		mode:                fs.Int("mode", d.GetMode(), "Reserved invocation flag"),
		spatialIndex:        fs.String("index", d.GetSpatialIndex(), "Spatial index: auto, grid, kdtree or brute"),
		bruteForceThreshold: fs.Int("brute-threshold", d.GetBruteForceThreshold(), "Band size at or below which auto uses a brute-force scan"),
		linker:              fs.String("linker", d.GetLinker(), "Cross-band linker: greedy or hungarian"),
		workers:             fs.Int("workers", d.GetWorkers(), "Band clustering workers (0 = GOMAXPROCS)"),
		timeout:             fs.String("timeout", "", "Abort after this duration, e.g. 5m (empty = none)"),
	}
}

// Apply copies every flag set on the command line onto cfg.
func (f *FlagOverrides) Apply(cfg *SegmentationConfig) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "radius":
			cfg.Radius = ptrFloat64(*f.radius)
		case "vres":
			cfg.VerticalResolution = ptrFloat64(*f.verticalResolution)
		case "min-points":
			cfg.MinPointsPerCluster = ptrInt(*f.minPointsPerCluster)
		case "band-min-points":
			cfg.BandMinPoints = ptrInt(*f.bandMinPoints)
		case "direction":
			cfg.Direction = ptrString(*f.direction)
		case "mode":
			cfg.Mode = ptrInt(*f.mode)
		case "index":
			cfg.SpatialIndex = ptrString(*f.spatialIndex)
		case "brute-threshold":
			cfg.BruteForceThreshold = ptrInt(*f.bruteForceThreshold)
		case "linker":
			cfg.Linker = ptrString(*f.linker)
		case "workers":
			cfg.Workers = ptrInt(*f.workers)
		case "timeout":
			cfg.Timeout = ptrString(*f.timeout)
		}
	})
}

// Resolve loads path (or starts from an empty config when path is empty),
// applies the overrides and validates the result.
func (f *FlagOverrides) Resolve(path string) (*SegmentationConfig, error) {
	cfg := EmptySegmentationConfig()
	if path != "" {
		loaded, err := LoadSegmentationConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
