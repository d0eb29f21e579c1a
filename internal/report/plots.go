// Package report renders diagnostics for separation runs and sweeps: PNG
// charts through gonum/plot and interactive HTML scatters through go-echarts.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/canopy/internal/sweep"
	"github.com/banshee-data/canopy/internal/treeseg"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("report: no data to plot")

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// WriteSizeHistogram writes a PNG histogram of tree sizes (points per tree).
// bins <= 0 picks a bin count from the number of trees.
func WriteSizeHistogram(w io.Writer, res *treeseg.Result, bins int) error {
	if res == nil || len(res.Trees) == 0 {
		return ErrNoData
	}
	sizes := make(plotter.Values, len(res.Trees))
	for i, t := range res.Trees {
		sizes[i] = float64(t.Size())
	}
	if bins <= 0 {
		bins = defaultBins(len(sizes))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tree size distribution (%d trees, %d noise points)", res.NumTrees, res.NoiseCount)
	p.X.Label.Text = "Points per tree"
	p.Y.Label.Text = "Trees"

	h, err := plotter.NewHist(sizes, bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h)

	return savePNG(p, w)
}

// WriteSweepPlot writes a PNG line chart of tree count against radius, one
// line per (vertical resolution, min points) pair. Failed and skipped
// combinations are left out.
func WriteSweepPlot(w io.Writer, results []sweep.ComboResult) error {
	type seriesKey struct {
		vres      float64
		minPoints int
	}
	series := make(map[seriesKey]plotter.XYs)
	for _, r := range results {
		if r.Err != nil || r.Skipped {
			continue
		}
		k := seriesKey{r.VerticalResolution, r.MinPoints}
		series[k] = append(series[k], plotter.XY{X: r.Radius, Y: float64(r.NumTrees)})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	keys := make([]seriesKey, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].vres != keys[j].vres {
			return keys[i].vres < keys[j].vres
		}
		return keys[i].minPoints < keys[j].minPoints
	})

	p := plot.New()
	p.Title.Text = "Trees found vs radius"
	p.X.Label.Text = "Radius (m)"
	p.Y.Label.Text = "Trees"
	p.Legend.Top = true

	for i, k := range keys {
		pts := series[k]
		sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("build sweep line: %w", err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("v=%.2f m=%d", k.vres, k.minPoints), line, points)
	}

	return savePNG(p, w)
}

func savePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// defaultBins applies the square-root rule, clamped to [1, 50].
func defaultBins(n int) int {
	b := 1
	for b*b < n {
		b++
	}
	return min(max(b, 1), 50)
}
