package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/canopy/internal/config"
	"github.com/banshee-data/canopy/internal/db"
	"github.com/banshee-data/canopy/internal/fsutil"
	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/report"
	"github.com/banshee-data/canopy/internal/sweep"
	"github.com/banshee-data/canopy/internal/treeseg"
)

// fsys is swapped for an in-memory filesystem in tests.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	configPath := fs.String("config", "", "Segmentation config JSON supplying the fixed parameters")
	output := fs.String("output", "", "Output CSV filename (defaults to sweep-<timestamp>.csv)")
	plotPath := fs.String("plot", "", "Write a trees-vs-radius PNG")
	dbPath := fs.String("db", "", "Record every combination in this SQLite database")
	skipExisting := fs.Bool("skip-existing", true, "Skip combinations already recorded in -db")
	source := fs.String("source", "", "Source name recorded with each run (default input file name)")
	parallel := fs.Int("parallel", 1, "Combinations to run concurrently")

	// Parameter lists: comma-separated values or min:max:step ranges.
	radiusList := fs.String("radii", "", "Radii to sweep, e.g. 0.5,1,1.5 or 0.5:3:0.25 (default: -radius)")
	vresList := fs.String("vresolutions", "", "Band heights to sweep, e.g. 0.5,0.7 or 0.3:1.2:0.1 (default: -vres)")
	minPointsList := fs.String("min-points-list", "", "Minimum tree sizes to sweep, e.g. 3,10,30 or 5:50:5 (default: -min-points)")

	overrides := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one input file, got %d", fs.NArg())
	}
	input := fs.Arg(0)
	if *source == "" {
		*source = filepath.Base(input)
	}

	cfg, err := overrides.Resolve(*configPath)
	if err != nil {
		return err
	}
	base, inv, err := treeseg.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if timeout := cfg.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	radii, err := paramListOr(*radiusList, base.Radius)
	if err != nil {
		return fmt.Errorf("radii: %w", err)
	}
	vres, err := paramListOr(*vresList, base.VerticalResolution)
	if err != nil {
		return fmt.Errorf("vresolutions: %w", err)
	}
	minPoints, err := intParamListOr(*minPointsList, base.MinPointsPerCluster)
	if err != nil {
		return fmt.Errorf("min-points-list: %w", err)
	}
	combos := sweep.Combos(radii, vres, minPoints)
	if len(combos) == 0 {
		return fmt.Errorf("no parameter combinations to run")
	}

	points, err := pointcloud.ReadXYZFile(fsys, input)
	if err != nil {
		return err
	}
	log.Printf("Read %d points from %s", len(points), input)
	log.Printf("Sweeping %d combinations: radii=%v vresolutions=%v min_points=%v", len(combos), radii, vres, minPoints)
	log.Printf("Fixed parameters: BandMinPoints=%d, Direction=%s, Index=%s, Linker=%s",
		base.BandMinPoints, inv.Direction, base.Index, base.Linker)

	runner := &sweep.Runner{
		Points:       points,
		Source:       *source,
		Base:         base,
		Invocation:   inv,
		Workers:      *parallel,
		SkipExisting: *skipExisting,
	}
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		runner.Recorder = db.NewRunStore(database)
	}

	start := time.Now()
	results, runErr := runner.Run(ctx, combos)
	if runErr != nil {
		log.Printf("WARNING: %v; writing results gathered so far", runErr)
	}
	log.Printf("Sweep finished in %s", time.Since(start).Round(time.Millisecond))

	csvPath := *output
	if csvPath == "" {
		csvPath = fmt.Sprintf("sweep-%s.csv", time.Now().Format("20060102T150405"))
	}
	if err := writeFile(csvPath, func(w io.Writer) error {
		return sweep.NewCSVWriter(w).WriteAll(results)
	}); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %d rows to %s\n", len(results), csvPath)

	if *plotPath != "" {
		err := writeFile(*plotPath, func(w io.Writer) error { return report.WriteSweepPlot(w, results) })
		if errors.Is(err, report.ErrNoData) {
			log.Printf("No completed combinations; skipping plot")
		} else if err != nil {
			return fmt.Errorf("write plot: %w", err)
		}
	}
	return runErr
}

func paramListOr(s string, fallback float64) ([]float64, error) {
	if s == "" {
		return []float64{fallback}, nil
	}
	return sweep.ParseParamList(s)
}

func intParamListOr(s string, fallback int) ([]int, error) {
	if s == "" {
		return []int{fallback}, nil
	}
	return sweep.ParseIntParamList(s)
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
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
