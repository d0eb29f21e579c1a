package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/banshee-data/canopy/internal/config"
	"github.com/banshee-data/canopy/internal/db"
	"github.com/banshee-data/canopy/internal/fsutil"
	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/report"
	"github.com/banshee-data/canopy/internal/treeseg"
)

// fsys is swapped for an in-memory filesystem in tests.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

type runOptions struct {
	configPath  string
	output      string
	treeDir     string
	summaryPath string
	histPath    string
	scatterPath string
	dbPath      string
	source      string
	write       pointcloud.WriteOptions
}

func runSeparate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var o runOptions
	fs.StringVar(&o.configPath, "config", "", "Segmentation config JSON (flags override it)")
	fs.StringVar(&o.output, "o", "", "Labelled output file (default stdout)")
	fs.StringVar(&o.treeDir, "tree-dir", "", "Also write one XYZ file per tree into this directory")
	fs.StringVar(&o.summaryPath, "summary", "", "Write per-tree summaries as JSON")
	fs.StringVar(&o.histPath, "hist", "", "Write a tree size histogram PNG")
	fs.StringVar(&o.scatterPath, "scatter", "", "Write an interactive tree scatter HTML")
	fs.StringVar(&o.dbPath, "db", "", "Record the run in this SQLite database")
	fs.StringVar(&o.source, "source", "", "Source name recorded with the run (default input file name)")
	fs.BoolVar(&o.write.IncludeNoise, "noise", false, "Include noise rows (tree ID 0) in the labelled output")
	fs.BoolVar(&o.write.Colors, "colors", false, "Append per-tree r g b columns")
	fs.IntVar(&o.write.Decimals, "decimals", 0, "Fixed decimals for coordinates (0 = shortest exact form)")
	overrides := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one input file, got %d", fs.NArg())
	}
	input := fs.Arg(0)
	if o.source == "" {
		o.source = filepath.Base(input)
	}

	cfg, err := overrides.Resolve(o.configPath)
	if err != nil {
		return err
	}
	params, inv, err := treeseg.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if timeout := cfg.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	points, err := pointcloud.ReadXYZFile(fsys, input)
	if err != nil {
		return err
	}
	log.Printf("Read %d points from %s", len(points), input)
	logParameters(params, inv)

	sep, err := treeseg.NewSeparator(points, params)
	if err != nil {
		return err
	}
	res, runErr := sep.Separate(ctx, inv)
	if res == nil {
		return runErr
	}
	if runErr != nil {
		log.Printf("WARNING: %v; writing partial results", runErr)
	}
	log.Printf("Found %d trees, %d noise points in %s", res.NumTrees, res.NoiseCount, res.Elapsed.Round(time.Millisecond))

	if err := writeOutputs(o, stdout, points, sep.Params(), res); err != nil {
		return err
	}
	return runErr
}

func logParameters(params treeseg.Params, inv treeseg.Invocation) {
	log.Printf("Parameters: Radius=%.3f, VerticalResolution=%.3f, MinPointsPerCluster=%d, BandMinPoints=%d, Direction=%s, Index=%s, Linker=%s",
		params.Radius, params.VerticalResolution, params.MinPointsPerCluster, params.BandMinPoints,
		inv.Direction, params.Index, params.Linker)
}

func writeOutputs(o runOptions, stdout io.Writer, points []pointcloud.Point, params treeseg.Params, res *treeseg.Result) error {
	if err := withOutput(o.output, stdout, func(w io.Writer) error {
		return pointcloud.WriteLabeled(w, points, res.Labels, o.write)
	}); err != nil {
		return fmt.Errorf("write labelled output: %w", err)
	}

	if o.treeDir != "" {
		paths, err := pointcloud.WritePerTree(fsys, o.treeDir, points, res.Labels, o.write)
		if err != nil {
			return fmt.Errorf("write per-tree files: %w", err)
		}
		log.Printf("Wrote %d tree files to %s", len(paths), o.treeDir)
	}

	trees := treeseg.Summarize(points, res)
	if o.summaryPath != "" {
		if err := withFile(o.summaryPath, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(trees)
		}); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if o.histPath != "" {
		err := withFile(o.histPath, func(w io.Writer) error { return report.WriteSizeHistogram(w, res, 0) })
		if errors.Is(err, report.ErrNoData) {
			log.Printf("No trees found; skipping histogram")
		} else if err != nil {
			return fmt.Errorf("write histogram: %w", err)
		}
	}

	if o.scatterPath != "" {
		if err := withFile(o.scatterPath, func(w io.Writer) error {
			return report.WriteTreeScatter(w, points, res, report.ScatterOptions{
				Title:        o.source,
				MaxPoints:    50000,
				IncludeNoise: o.write.IncludeNoise,
			})
		}); err != nil {
			return fmt.Errorf("write scatter: %w", err)
		}
	}

	if o.dbPath != "" {
		database, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		id, err := db.NewRunStore(database).Record(o.source, params, res, trees)
		if err != nil {
			return err
		}
		log.Printf("Recorded run %s", id)
	}
	return nil
}

// withOutput writes to path, or to fallback when path is empty.
func withOutput(path string, fallback io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(fallback)
	}
	return withFile(path, fn)
}

func withFile(path string, fn func(io.Writer) error) (err error) {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
