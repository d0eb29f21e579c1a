package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/canopy/internal/treeseg"
)

// ErrRunNotFound is returned when a run ID or parameter combination has no
// stored run.
var ErrRunNotFound = errors.New("segmentation run not found")

// Run is a persisted segmentation run: the parameters it used, the counts it
// produced and the per-tree summaries.
type Run struct {
	RunID               string        `json:"run_id"`
	Source              string        `json:"source"`
	Radius              float64       `json:"radius"`
	VerticalResolution  float64       `json:"vertical_resolution"`
	MinPointsPerCluster int           `json:"min_points_per_cluster"`
	BandMinPoints       int           `json:"band_min_points"`
	Direction           string        `json:"direction"`
	SpatialIndex        string        `json:"spatial_index"`
	Linker              string        `json:"linker"`
	NumPoints           int           `json:"num_points"`
	NumTrees            int           `json:"num_trees"`
	NoiseCount          int           `json:"noise_count"`
	NumBands            int           `json:"num_bands"`
	EmptyBands          int           `json:"empty_bands"`
	NumClusters         int           `json:"num_clusters"`
	NumStacks           int           `json:"num_stacks"`
	Partial             bool          `json:"partial"`
	Runtime             time.Duration `json:"runtime_ns"`
	CreatedAt           int64         `json:"created_at"`

	Trees []treeseg.TreeSummary `json:"trees,omitempty"`
}

// NewRun builds a Run from a finished separation.
func NewRun(source string, params treeseg.Params, res *treeseg.Result, trees []treeseg.TreeSummary) *Run {
	params = params.Canonical()
	return &Run{
		Source:              source,
		Radius:              params.Radius,
		VerticalResolution:  params.VerticalResolution,
		MinPointsPerCluster: params.MinPointsPerCluster,
		BandMinPoints:       params.BandMinPoints,
		Direction:           res.Direction.String(),
		SpatialIndex:        string(params.Index),
		Linker:              string(params.Linker),
		NumPoints:           len(res.Labels),
		NumTrees:            res.NumTrees,
		NoiseCount:          res.NoiseCount,
		NumBands:            res.Bands,
		EmptyBands:          res.EmptyBands,
		NumClusters:         res.Clusters,
		NumStacks:           res.Stacks,
		Partial:             res.Partial,
		Runtime:             res.Elapsed,
		Trees:               trees,
	}
}

// RunStore provides persistence for segmentation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

const runColumns = `run_id, source, radius, vertical_resolution, min_points_per_cluster,
	band_min_points, direction, spatial_index, linker,
	num_points, num_trees, noise_count, num_bands, empty_bands, num_clusters, num_stacks,
	partial, runtime_ns, created_at`

// Insert persists a run and its trees in one transaction. If RunID is empty
// a UUID is generated.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`INSERT INTO segmentation_runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.Radius, run.VerticalResolution, run.MinPointsPerCluster,
			run.BandMinPoints, run.Direction, run.SpatialIndex, run.Linker,
			run.NumPoints, run.NumTrees, run.NoiseCount, run.NumBands, run.EmptyBands,
			run.NumClusters, run.NumStacks, run.Partial, int64(run.Runtime), run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO segmentation_trees (
				run_id, tree_id, num_points, centroid_x, centroid_y, centroid_z, first_band, last_band
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare tree insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range run.Trees {
			if _, err := stmt.Exec(run.RunID, t.ID, t.NumPoints,
				t.CentroidX, t.CentroidY, t.CentroidZ, t.FirstBand, t.LastBand); err != nil {
				return fmt.Errorf("insert tree %d: %w", t.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Record stores a finished separation of source and returns the new run ID.
func (s *RunStore) Record(source string, params treeseg.Params, res *treeseg.Result, trees []treeseg.TreeSummary) (string, error) {
	run := NewRun(source, params, res, trees)
	if err := s.Insert(run); err != nil {
		return "", err
	}
	return run.RunID, nil
}

// Get returns a run and its trees by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM segmentation_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	run.Trees, err = s.trees(runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs for source, newest first. An empty source lists every
// run; limit <= 0 means no limit. Trees are not loaded.
func (s *RunStore) List(source string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM segmentation_runs`
	var args []interface{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at DESC, run_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindByParams returns the most recent complete run of source made with the
// same separation parameters and direction. Workers and
// BruteForceThreshold do not change the result and are not compared.
func (s *RunStore) FindByParams(source string, params treeseg.Params, inv treeseg.Invocation) (*Run, error) {
	params = params.Canonical()
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM segmentation_runs
		WHERE source = ? AND radius = ? AND vertical_resolution = ? AND min_points_per_cluster = ?
		  AND band_min_points = ? AND direction = ? AND spatial_index = ? AND linker = ?
		  AND partial = 0
		ORDER BY created_at DESC LIMIT 1`,
		source, params.Radius, params.VerticalResolution, params.MinPointsPerCluster,
		params.BandMinPoints, inv.Direction.String(), string(params.Index), string(params.Linker))
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// HasRun reports whether a complete run exists for source under params and
// inv.
func (s *RunStore) HasRun(source string, params treeseg.Params, inv treeseg.Invocation) (bool, error) {
	_, err := s.FindByParams(source, params, inv)
	if errors.Is(err, ErrRunNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a run and, through the foreign key, its trees.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM segmentation_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil
	})
}

func (s *RunStore) trees(runID string) ([]treeseg.TreeSummary, error) {
	rows, err := s.db.Query(`
		SELECT tree_id, num_points, centroid_x, centroid_y, centroid_z, first_band, last_band
		FROM segmentation_trees
		WHERE run_id = ?
		ORDER BY tree_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trees: %w", err)
	}
	defer rows.Close()

	var trees []treeseg.TreeSummary
	for rows.Next() {
		var t treeseg.TreeSummary
		if err := rows.Scan(&t.ID, &t.NumPoints, &t.CentroidX, &t.CentroidY, &t.CentroidZ,
			&t.FirstBand, &t.LastBand); err != nil {
			return nil, fmt.Errorf("scan tree row: %w", err)
		}
		trees = append(trees, t)
	}
	return trees, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var runtimeNs int64
	err := row.Scan(
		&r.RunID, &r.Source, &r.Radius, &r.VerticalResolution, &r.MinPointsPerCluster,
		&r.BandMinPoints, &r.Direction, &r.SpatialIndex, &r.Linker,
		&r.NumPoints, &r.NumTrees, &r.NoiseCount, &r.NumBands, &r.EmptyBands,
		&r.NumClusters, &r.NumStacks, &r.Partial, &runtimeNs, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	r.Runtime = time.Duration(runtimeNs)
	return &r, nil
}
