package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
)

// SummaryHeaders are the column names of the sweep summary CSV.
var SummaryHeaders = []string{
	"radius", "vertical_resolution", "min_points",
	"n_points", "n_trees", "noise",
	"mean_tree_size", "stddev_tree_size",
	"runtime_s", "run_id", "skipped", "error",
}

// CSVWriter wraps csv.Writer with methods for sweep output.
type CSVWriter struct {
	Summary *csv.Writer
}

// NewCSVWriter creates a new CSVWriter over the given summary writer.
func NewCSVWriter(summary io.Writer) *CSVWriter {
	return &CSVWriter{Summary: csv.NewWriter(summary)}
}

// WriteHeader writes the summary CSV header.
func (c *CSVWriter) WriteHeader() error {
	return c.Summary.Write(SummaryHeaders)
}

// WriteResult writes one summary row and flushes it, so an interrupted
// sweep still leaves every finished row on disk.
func (c *CSVWriter) WriteResult(r ComboResult) error {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	row := []string{
		fmt.Sprintf("%.6f", r.Radius),
		fmt.Sprintf("%.6f", r.VerticalResolution),
		fmt.Sprintf("%d", r.MinPoints),
		fmt.Sprintf("%d", r.NumPoints),
		fmt.Sprintf("%d", r.NumTrees),
		fmt.Sprintf("%d", r.NoiseCount),
		fmt.Sprintf("%.3f", r.MeanTreeSize),
		fmt.Sprintf("%.3f", r.StddevTreeSize),
		fmt.Sprintf("%.6f", r.Runtime.Seconds()),
		r.RunID,
		fmt.Sprintf("%t", r.Skipped),
		errText,
	}
	if err := c.Summary.Write(row); err != nil {
		return err
	}
	c.Summary.Flush()
	return c.Summary.Error()
}

// WriteAll writes the header followed by every result.
func (c *CSVWriter) WriteAll(results []ComboResult) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := c.WriteResult(r); err != nil {
			return err
		}
	}
	c.Summary.Flush()
	return c.Summary.Error()
}
