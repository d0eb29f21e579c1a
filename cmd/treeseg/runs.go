package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/canopy/internal/db"
)

const defaultDBPath = "treeseg.db"

func openStore(dbPath string) (*db.DB, *db.RunStore, error) {
	database, err := db.NewDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, db.NewRunStore(database), nil
}

func listRuns(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	source := fs.String("source", "", "Only list runs of this source")
	limit := fs.Int("limit", 20, "Maximum runs to list (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := store.List(*source, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSOURCE\tRADIUS\tVRES\tMIN\tDIRECTION\tTREES\tNOISE\tRUNTIME\tCREATED")
	for _, r := range runs {
		partial := ""
		if r.Partial {
			partial = " (partial)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%d\t%s\t%d%s\t%d\t%s\t%s\n",
			r.RunID, r.Source, r.Radius, r.VerticalResolution, r.MinPointsPerCluster,
			r.Direction, r.NumTrees, partial, r.NoiseCount,
			r.Runtime.Round(time.Millisecond),
			time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func showRun(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected a run ID")
	}

	database, store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := store.Get(fs.Arg(0))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

func deleteRun(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected a run ID")
	}

	database, store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.Delete(fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted run %s\n", fs.Arg(0))
	return nil
}

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	fs.Usage = func() { db.PrintMigrateHelp(fs.Output()) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}
