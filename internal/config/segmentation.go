package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical segmentation defaults file.
const DefaultConfigPath = "config/segmentation.defaults.json"

// Recognised string values, kept here so the config package does not depend
// on the segmentation core.
var (
	validDirections   = map[string]bool{"top-down": true, "bottom-up": true}
	validIndexKinds   = map[string]bool{"auto": true, "grid": true, "kdtree": true, "brute": true}
	validLinkerKinds  = map[string]bool{"greedy": true, "hungarian": true}
	maxConfigFileSize = int64(1 * 1024 * 1024)
)

// SegmentationConfig holds the parameters for a tree separation run.
// Pointer fields distinguish "not set" from zero so partial files are valid;
// the Get* accessors fall back to defaults.
type SegmentationConfig struct {
	// Construction parameters
	Radius              *float64 `json:"radius,omitempty"`
	VerticalResolution  *float64 `json:"vertical_resolution,omitempty"`
	MinPointsPerCluster *int     `json:"min_points_per_cluster,omitempty"`
	BandMinPoints       *int     `json:"band_min_points,omitempty"`

	// Invocation parameters
	Direction *string `json:"direction,omitempty"` // "top-down" or "bottom-up"
	Mode      *int    `json:"mode,omitempty"`      // reserved

	// Execution
	SpatialIndex        *string `json:"spatial_index,omitempty"` // auto, grid, kdtree, brute
	BruteForceThreshold *int    `json:"brute_force_threshold,omitempty"`
	Linker              *string `json:"linker,omitempty"` // greedy, hungarian
	Workers             *int    `json:"workers,omitempty"`
	Timeout             *string `json:"timeout,omitempty"` // duration string like "5m"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySegmentationConfig returns a config with every field unset.
func EmptySegmentationConfig() *SegmentationConfig {
	return &SegmentationConfig{}
}

// DefaultSegmentationConfig returns a config with every field set to its
// default value.
func DefaultSegmentationConfig() *SegmentationConfig {
	c := EmptySegmentationConfig()
	return &SegmentationConfig{
		Radius:              ptrFloat64(c.GetRadius()),
		VerticalResolution:  ptrFloat64(c.GetVerticalResolution()),
		MinPointsPerCluster: ptrInt(c.GetMinPointsPerCluster()),
		BandMinPoints:       ptrInt(c.GetBandMinPoints()),
		Direction:           ptrString(c.GetDirection()),
		Mode:                ptrInt(c.GetMode()),
		SpatialIndex:        ptrString(c.GetSpatialIndex()),
		BruteForceThreshold: ptrInt(c.GetBruteForceThreshold()),
		Linker:              ptrString(c.GetLinker()),
		Workers:             ptrInt(c.GetWorkers()),
		Timeout:             ptrString(""),
	}
}

// LoadSegmentationConfig loads a SegmentationConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields keep
// their defaults.
func LoadSegmentationConfig(path string) (*SegmentationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySegmentationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *SegmentationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/gen-forest/
	}
	for _, path := range candidates {
		if cfg, err := LoadSegmentationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every field that is set.
func (c *SegmentationConfig) Validate() error {
	if c.Radius != nil && (!(*c.Radius > 0) || math.IsInf(*c.Radius, 0)) {
		return fmt.Errorf("radius must be a positive finite number, got %v", *c.Radius)
	}
	if c.VerticalResolution != nil && (!(*c.VerticalResolution > 0) || math.IsInf(*c.VerticalResolution, 0)) {
		return fmt.Errorf("vertical_resolution must be a positive finite number, got %v", *c.VerticalResolution)
	}
	if c.MinPointsPerCluster != nil && *c.MinPointsPerCluster < 1 {
		return fmt.Errorf("min_points_per_cluster must be at least 1, got %d", *c.MinPointsPerCluster)
	}
	if c.BandMinPoints != nil && *c.BandMinPoints < 1 {
		return fmt.Errorf("band_min_points must be at least 1, got %d", *c.BandMinPoints)
	}
	if c.Direction != nil && !validDirections[*c.Direction] {
		return fmt.Errorf("direction must be \"top-down\" or \"bottom-up\", got %q", *c.Direction)
	}
	if c.SpatialIndex != nil && !validIndexKinds[*c.SpatialIndex] {
		return fmt.Errorf("spatial_index must be one of auto, grid, kdtree, brute; got %q", *c.SpatialIndex)
	}
	if c.BruteForceThreshold != nil && *c.BruteForceThreshold < 0 {
		return fmt.Errorf("brute_force_threshold must be non-negative, got %d", *c.BruteForceThreshold)
	}
	if c.Linker != nil && !validLinkerKinds[*c.Linker] {
		return fmt.Errorf("linker must be \"greedy\" or \"hungarian\", got %q", *c.Linker)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
	}
	return nil
}

// GetRadius returns the planar proximity threshold or the default.
func (c *SegmentationConfig) GetRadius() float64 {
	if c.Radius == nil {
		return 1.0
	}
	return *c.Radius
}

// GetVerticalResolution returns the band height or the default.
func (c *SegmentationConfig) GetVerticalResolution() float64 {
	if c.VerticalResolution == nil {
		return 0.7
	}
	return *c.VerticalResolution
}

// GetMinPointsPerCluster returns the minimum tree size or the default.
func (c *SegmentationConfig) GetMinPointsPerCluster() int {
	if c.MinPointsPerCluster == nil {
		return 3
	}
	return *c.MinPointsPerCluster
}

// GetBandMinPoints returns the per-band cluster floor. The default of 1
// keeps every band cluster.
func (c *SegmentationConfig) GetBandMinPoints() int {
	if c.BandMinPoints == nil {
		return 1
	}
	return *c.BandMinPoints
}

// GetDirection returns the slicing direction or the default ("top-down").
func (c *SegmentationConfig) GetDirection() string {
	if c.Direction == nil {
		return "top-down"
	}
	return *c.Direction
}

// GetMode returns the reserved mode flag.
func (c *SegmentationConfig) GetMode() int {
	if c.Mode == nil {
		return 1
	}
	return *c.Mode
}

// GetSpatialIndex returns the spatial index kind or the default ("auto").
func (c *SegmentationConfig) GetSpatialIndex() string {
	if c.SpatialIndex == nil {
		return "auto"
	}
	return *c.SpatialIndex
}

// GetBruteForceThreshold returns the band size at or below which "auto"
// uses a brute-force scan.
func (c *SegmentationConfig) GetBruteForceThreshold() int {
	if c.BruteForceThreshold == nil {
		return 64
	}
	return *c.BruteForceThreshold
}

// GetLinker returns the cross-band assignment strategy or the default ("greedy").
func (c *SegmentationConfig) GetLinker() string {
	if c.Linker == nil {
		return "greedy"
	}
	return *c.Linker
}

// GetWorkers returns the band clustering worker count; 0 means GOMAXPROCS.
func (c *SegmentationConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetTimeout parses Timeout. Zero means no timeout.
func (c *SegmentationConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
