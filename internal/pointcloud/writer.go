package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/canopy/internal/fsutil"
)

// NoiseLabel is the label carried by points that belong to no tree.
const NoiseLabel = 0

// WriteOptions controls the labelled listing format.
type WriteOptions struct {
	IncludeNoise bool // also write rows labelled NoiseLabel
	Colors       bool // append "r g b" columns, one colour per tree
	Decimals     int  // fixed digits after the decimal point; 0 writes the shortest exact form
}

// WriteLabeled writes one "tree_id x y z" row per point, grouped by tree ID
// in ascending order and by input index within a tree. Noise rows come first
// when IncludeNoise is set.
func WriteLabeled(w io.Writer, points []Point, labels []int, opts WriteOptions) error {
	if len(points) != len(labels) {
		return fmt.Errorf("points/labels length mismatch: %d != %d", len(points), len(labels))
	}

	groups := groupByLabel(labels)
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 96)

	for label, indices := range groups {
		if label == NoiseLabel && !opts.IncludeNoise {
			continue
		}
		var r, g, b uint8
		if opts.Colors {
			r, g, b = TreeColor(label)
		}
		for _, idx := range indices {
			buf = appendRow(buf[:0], label, points[idx], opts.Decimals)
			if opts.Colors {
				buf = fmt.Appendf(buf, " %d %d %d", r, g, b)
			}
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	return bw.Flush()
}

// WritePerTree writes each tree to its own file, dir/tree_0001.xyz and so on,
// in plain "x y z" form. Noise is never written. It returns the created paths
// in tree ID order.
func WritePerTree(fsys fsutil.FileSystem, dir string, points []Point, labels []int, opts WriteOptions) ([]string, error) {
	if len(points) != len(labels) {
		return nil, fmt.Errorf("points/labels length mismatch: %d != %d", len(points), len(labels))
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	groups := groupByLabel(labels)
	var paths []string
	for label, indices := range groups {
		if label == NoiseLabel || len(indices) == 0 {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("tree_%04d.xyz", label))
		if err := writeTreeFile(fsys, path, points, indices, opts.Decimals); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTreeFile(fsys fsutil.FileSystem, path string, points []Point, indices []int, decimals int) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteXYZ(f, points, indices, decimals); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteXYZ writes plain "x y z" rows, the format ReadXYZ reads. A nil
// indices writes every point in input order.
func WriteXYZ(w io.Writer, points []Point, indices []int, decimals int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 80)
	write := func(p Point) error {
		buf = appendFloat(buf[:0], p.X, decimals)
		buf = append(buf, ' ')
		buf = appendFloat(buf, p.Y, decimals)
		buf = append(buf, ' ')
		buf = appendFloat(buf, p.Z, decimals)
		buf = append(buf, '\n')
		_, err := bw.Write(buf)
		return err
	}
	if indices == nil {
		for _, p := range points {
			if err := write(p); err != nil {
				return err
			}
		}
	} else {
		for _, idx := range indices {
			if err := write(points[idx]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// groupByLabel returns point indices per label, indexed by label value.
// Negative labels are ignored.
func groupByLabel(labels []int) [][]int {
	maxLabel := 0
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	groups := make([][]int, maxLabel+1)
	for idx, l := range labels {
		if l < 0 {
			continue
		}
		groups[l] = append(groups[l], idx)
	}
	return groups
}

func appendRow(buf []byte, label int, p Point, decimals int) []byte {
	buf = strconv.AppendInt(buf, int64(label), 10)
	buf = append(buf, ' ')
	buf = appendFloat(buf, p.X, decimals)
	buf = append(buf, ' ')
	buf = appendFloat(buf, p.Y, decimals)
	buf = append(buf, ' ')
	return appendFloat(buf, p.Z, decimals)
}

func appendFloat(buf []byte, v float64, decimals int) []byte {
	if decimals > 0 {
		return strconv.AppendFloat(buf, v, 'f', decimals, 64)
	}
	return strconv.AppendFloat(buf, v, 'f', -1, 64)
}
