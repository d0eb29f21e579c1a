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
	"syscall"

	"github.com/banshee-data/canopy/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := dispatch(ctx, os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("treeseg %s: %v", os.Args[1], err)
	}
}

func dispatch(ctx context.Context, command string, args []string, stdout io.Writer) error {
	switch command {
	case "run":
		return runSeparate(ctx, args, stdout)
	case "runs":
		return listRuns(args, stdout)
	case "show":
		return showRun(args, stdout)
	case "delete":
		return deleteRun(args, stdout)
	case "migrate":
		return runMigrate(args, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String("treeseg"))
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `treeseg - separate individual trees in a forest point cloud

Usage: treeseg <command> [options]

Commands:
  run <input.xyz>     Separate trees and write labelled output
  runs                List recorded runs
  show <run_id>       Print a recorded run and its trees as JSON
  delete <run_id>     Delete a recorded run
  migrate <action>    Manage the results database schema
  version             Show version
  help                Show this help message

Run 'treeseg <command> -h' for command options.

Examples:
  # Separate with defaults, labelled points to stdout
  treeseg run stand.xyz > labelled.xyz

  # Bottom-up slicing, one file per tree, record the run
  treeseg run -direction bottom-up -tree-dir trees/ -db runs.db stand.xyz

  # Render diagnostics
  treeseg run -hist sizes.png -scatter stand.html -o labelled.xyz stand.xyz
`)
}
