package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/canopy/internal/fsutil"
)

// maxLineBytes bounds a single input line; wide LAS exports with many extra
// columns still fit comfortably.
const maxLineBytes = 1 << 20

// ReadXYZ parses whitespace-delimited ASCII points, one per line.
// The first three columns are x, y and z; further columns are ignored.
// Blank lines and lines starting with '#' or "//" are skipped.
func ReadXYZ(r io.Reader) ([]Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var points []Point
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", lineNo, len(fields))
		}

		var coords [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid coordinate %q: %w", lineNo, fields[i], err)
			}
			coords[i] = v
		}
		points = append(points, Point{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}
	return points, nil
}

// ReadXYZFile opens path on fsys and parses it with ReadXYZ.
func ReadXYZFile(fsys fsutil.FileSystem, path string) ([]Point, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open point file: %w", err)
	}
	defer f.Close()

	points, err := ReadXYZ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
