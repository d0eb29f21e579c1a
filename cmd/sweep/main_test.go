package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy/internal/fsutil"
	"github.com/banshee-data/canopy/internal/monitoring"
	"github.com/banshee-data/canopy/internal/synth"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func useMemFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	mem := fsutil.NewMemoryFileSystem()
	old := fsys
	fsys = mem
	t.Cleanup(func() { fsys = old })

	pts := append(synth.Column(0, 0, 0, 0.2, 10), synth.Column(5, 0, 0, 0.2, 10)...)
	var buf strings.Builder
	for _, p := range pts {
		fmt.Fprintf(&buf, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	w, err := mem.Create("columns.xyz")
	require.NoError(t, err)
	_, err = io.WriteString(w, buf.String())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return mem
}

func readCSV(t *testing.T, mem *fsutil.MemoryFileSystem, name string) [][]string {
	t.Helper()
	raw, err := mem.ReadFile(name)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_Sweep(t *testing.T) {
	mem := useMemFS(t)

	var out bytes.Buffer
	args := []string{
		"-vres", "0.5",
		"-radii", "1,6",
		"-min-points-list", "3:20:17",
		"-parallel", "2",
		"-output", "out.csv",
		"-plot", "sweep.png",
		"columns.xyz",
	}
	require.NoError(t, run(context.Background(), args, &out))
	assert.Contains(t, out.String(), "Wrote 4 rows to out.csv")

	rows := readCSV(t, mem, "out.csv")
	require.Len(t, rows, 5)
	trees := []string{rows[1][4], rows[2][4], rows[3][4], rows[4][4]}
	assert.Equal(t, []string{"2", "0", "1", "1"}, trees)

	png, err := mem.ReadFile("sweep.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRun_RecordsAndSkips(t *testing.T) {
	mem := useMemFS(t)
	dbPath := filepath.Join(t.TempDir(), "sweep.db")
	args := []string{"-vres", "0.5", "-radii", "1,2", "-db", dbPath, "-output", "first.csv", "columns.xyz"}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out))
	first := readCSV(t, mem, "first.csv")
	require.Len(t, first, 3)
	assert.NotEmpty(t, first[1][9])
	assert.Equal(t, "false", first[1][10])

	args[len(args)-2] = "second.csv"
	require.NoError(t, run(context.Background(), args, &out))
	second := readCSV(t, mem, "second.csv")
	require.Len(t, second, 3)
	assert.Equal(t, "true", second[1][10])
	assert.Equal(t, "true", second[2][10])

	// Changing a parameter the grid does not vary is a new configuration.
	third := append([]string{"-linker", "hungarian", "-direction", "bottom-up", "-band-min-points", "2"}, args...)
	third[len(third)-2] = "third.csv"
	require.NoError(t, run(context.Background(), third, &out))
	rows := readCSV(t, mem, "third.csv")
	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.Equal(t, "false", row[10])
		assert.NotEmpty(t, row[9])
	}
}

func TestRun_Errors(t *testing.T) {
	useMemFS(t)
	var out bytes.Buffer
	ctx := context.Background()

	assert.Error(t, run(ctx, nil, &out))
	assert.Error(t, run(ctx, []string{"-radii", "1:2", "columns.xyz"}, &out))
	assert.Error(t, run(ctx, []string{"-radii", "3:1:1", "columns.xyz"}, &out))
	assert.Error(t, run(ctx, []string{"-output", "x.csv", "missing.xyz"}, &out))
}

func TestRun_InvalidComboIsReported(t *testing.T) {
	mem := useMemFS(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-vres", "0.5", "-radii", "0,1", "-output", "out.csv", "columns.xyz"}, &out))

	rows := readCSV(t, mem, "out.csv")
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1][11], "radius")
	assert.Empty(t, rows[2][11])
}
