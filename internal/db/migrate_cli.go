package db

import (
	"fmt"
	"io"
	"strconv"
)

// MigrationStatus summarises the schema state of a database.
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
}

// Pending reports whether migrations remain to be applied.
func (s MigrationStatus) Pending() bool {
	return s.CurrentVersion < s.LatestVersion
}

// Status returns the current and latest migration versions.
func (db *DB) Status() (MigrationStatus, error) {
	fsys := MigrationsFS()
	current, dirty, err := db.MigrateVersion(fsys)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	latest, err := LatestMigrationVersion(fsys)
	if err != nil {
		return MigrationStatus{}, err
	}
	return MigrationStatus{CurrentVersion: current, LatestVersion: latest, Dirty: dirty}, nil
}

// RunMigrateCommand handles the 'migrate' subcommand: up, down, status,
// force <version> or help. Output goes to w.
func RunMigrateCommand(args []string, dbPath string, w io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}

	// Open without migrating; the command manages the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	fsys := MigrationsFS()
	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(fsys); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(fsys); err != nil {
			return err
		}
	case "status":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate force <version_number>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[1], err)
		}
		if err := database.MigrateForce(fsys, version); err != nil {
			return err
		}
	case "help":
		PrintMigrateHelp(w)
		return nil
	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	status, err := database.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Schema version: %d (latest %d)", status.CurrentVersion, status.LatestVersion)
	if status.Dirty {
		fmt.Fprint(w, " [DIRTY - run 'migrate force <version>']")
	} else if status.Pending() {
		fmt.Fprint(w, " [pending migrations]")
	}
	fmt.Fprintln(w)
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: treeseg migrate [-db path] <action>

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show current and latest schema version
  force <version>    Set the version without running migrations (recovery only)
  help               Show this help
`)
}
