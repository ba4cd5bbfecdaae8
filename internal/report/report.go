// Package report renders a run as a standalone HTML page.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/yyyoichi/emeans/internal/evolution"
	"github.com/yyyoichi/emeans/internal/projection"
	"gonum.org/v1/gonum/mat"
)

type Input struct {
	Title   string
	History []evolution.GenerationStats
	Best    *evolution.Best
	// Data is coloured by Best.Labels. Points with more than two columns are
	// plotted on their first two principal components.
	Data *mat.Dense
}

// Render writes a page with the fitness history and, when a best solution
// and data are present, a scatter of the best clustering.
func Render(w io.Writer, in Input) error {
	if len(in.History) == 0 {
		return errors.New("report: empty history")
	}
	page := components.NewPage()
	if in.Title != "" {
		page.PageTitle = in.Title
	}
	page.AddCharts(fitnessChart(in))
	if in.Best != nil && in.Data != nil {
		scatter, err := clusterChart(in)
		if err != nil {
			return err
		}
		page.AddCharts(scatter)
	}
	return page.Render(w)
}

// WriteFile renders in to path.
func WriteFile(path string, in Input) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fitnessChart(in Input) *charts.Line {
	line := charts.NewLine()

	var (
		xAxisData []string
		bestData  []opts.LineData
		meanData  []opts.LineData
		worstData []opts.LineData
	)
	for _, s := range in.History {
		xAxisData = append(xAxisData, strconv.Itoa(s.Generation))
		bestData = append(bestData, opts.LineData{Value: s.Best})
		meanData = append(meanData, opts.LineData{Value: s.Mean})
		worstData = append(worstData, opts.LineData{
			Value: s.Worst,
			Name:  fmt.Sprintf("generation %d: %d degenerate", s.Generation, s.Degenerate),
		})
	}

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Dunn Index by generation",
			Subtitle: in.Title,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Generation",
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Dunn Index",
			Type: "value",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "5%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)
	line.SetXAxis(xAxisData)
	line.AddSeries("Best", bestData).
		AddSeries("Mean", meanData).
		AddSeries("Worst", worstData)
	return line
}

func clusterChart(in Input) (*charts.Scatter, error) {
	scatter := charts.NewScatter()
	data, centroids := in.Data, in.Best.Centroids
	_, cols := data.Dims()
	xName, yName := "x0", "x1"
	switch {
	case cols < 2:
		yName = "row"
	case cols > 2:
		p, err := projection.Fit(data, 2)
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		data, centroids = p.Apply(data), p.Apply(centroids)
		xName, yName = "pc1", "pc2"
	}
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Best clustering (generation %d)", in.Best.Generation),
			Subtitle: fmt.Sprintf("Dunn Index %.4f", in.Best.Fitness),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Type: "value"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
	)

	k, _ := centroids.Dims()
	groups := make([][]opts.ScatterData, k)
	for i, label := range in.Best.Labels {
		x, y := project(data.RawRowView(i), i)
		groups[label] = append(groups[label], opts.ScatterData{
			Value:      []any{x, y},
			Symbol:     "circle",
			SymbolSize: 8,
			Name:       fmt.Sprintf("row %d", i),
		})
	}
	for c, g := range groups {
		scatter.AddSeries(fmt.Sprintf("Cluster %d (%d)", c, len(g)), g)
	}

	var marks []opts.ScatterData
	for c := range k {
		x, y := project(centroids.RawRowView(c), -1)
		marks = append(marks, opts.ScatterData{
			Value:      []any{x, y},
			Symbol:     "diamond",
			SymbolSize: 16,
			Name:       fmt.Sprintf("centroid %d", c),
		})
	}
	scatter.AddSeries("Centroids", marks)
	return scatter, nil
}

// project maps a point onto the chart plane. One-dimensional points are
// spread along y by their row index.
func project(p []float64, row int) (float64, float64) {
	if len(p) >= 2 {
		return p[0], p[1]
	}
	return p[0], float64(row)
}
