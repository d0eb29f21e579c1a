package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/canopy/internal/pointcloud"
	"github.com/banshee-data/canopy/internal/treeseg"
)

// View selects the projection of a scatter chart.
type View int

const (
	// TopDown plots X against Y.
	TopDown View = iota
	// Side plots X against Z.
	Side
)

// ScatterOptions controls WriteTreeScatter.
type ScatterOptions struct {
	Title string
	View  View
	// MaxPoints caps the points drawn by taking every n-th point;
	// 0 draws everything.
	MaxPoints int
	// IncludeNoise draws noise points in grey.
	IncludeNoise bool
	// AssetsHost overrides the echarts JavaScript host.
	AssetsHost string
}

const noiseColor = "#9e9e9e"

// WriteTreeScatter renders an HTML scatter of the labelled points with one
// series per tree, coloured like the labelled XYZ output.
func WriteTreeScatter(w io.Writer, points []pointcloud.Point, res *treeseg.Result, o ScatterOptions) error {
	if res == nil || len(points) == 0 {
		return ErrNoData
	}
	if len(res.Labels) != len(points) {
		return fmt.Errorf("report: %d labels for %d points", len(res.Labels), len(points))
	}

	stride := 1
	if o.MaxPoints > 0 && len(points) > o.MaxPoints {
		stride = (len(points) + o.MaxPoints - 1) / o.MaxPoints
	}

	series := make([][]opts.ScatterData, res.NumTrees+1)
	drawn := 0
	for i := 0; i < len(points); i += stride {
		label := res.Labels[i]
		if label == pointcloud.NoiseLabel && !o.IncludeNoise {
			continue
		}
		p := points[i]
		v := p.Y
		if o.View == Side {
			v = p.Z
		}
		series[label] = append(series[label], opts.ScatterData{Value: []interface{}{p.X, v, label}})
		drawn++
	}

	title := o.Title
	if title == "" {
		title = "Separated trees"
	}
	yName := "Y (m)"
	if o.View == Side {
		yName = "Z (m)"
	}
	initOpts := opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("trees=%d noise=%d points=%d stride=%d", res.NumTrees, res.NoiseCount, drawn, stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(res.NumTrees <= 30)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 30}),
	)

	if o.IncludeNoise && len(series[0]) > 0 {
		scatter.AddSeries("noise", series[0],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: noiseColor}))
	}
	for id := 1; id <= res.NumTrees; id++ {
		if len(series[id]) == 0 {
			continue
		}
		r, g, b := pointcloud.TreeColor(id)
		scatter.AddSeries(fmt.Sprintf("tree %d", id), series[id],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: fmt.Sprintf("#%02x%02x%02x", r, g, b)}))
	}

	return scatter.Render(w)
}
