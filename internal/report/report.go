// Package report renders a standalone HTML summary of a loaded dataset:
// per-layer attribute charts for a quick look at the data before opening
// the full viewer.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/scene"
)

// maxScatterPoints caps numeric scatter charts; larger attributes are
// downsampled by stride to keep the HTML payload reasonable.
const maxScatterPoints = 2000

// Build assembles one page with a chart per model attribute: category counts
// as bars, numeric values as index-ordered scatters. Models without
// attributes contribute nothing.
func Build(ds *scene.Dataset) *components.Page {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("dataset report: %s", ds.Root)

	for _, m := range ds.Models {
		for _, name := range m.AttributeNames() {
			a, _ := m.Attribute(name)
			switch a.Kind {
			case geom.AttrCategorical:
				page.AddCharts(categoryBar(m, a))
			case geom.AttrNumeric:
				page.AddCharts(numericScatter(m, a))
			}
		}
	}
	return page
}

// WriteHTML renders the dataset report to w.
func WriteHTML(ds *scene.Dataset, w io.Writer) error {
	if err := Build(ds).Render(w); err != nil {
		return fmt.Errorf("render dataset report: %w", err)
	}
	return nil
}

func categoryBar(m *geom.Model, a geom.Attribute) *charts.Bar {
	counts := make(map[string]int)
	for _, l := range a.Labels {
		counts[l]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	data := make([]opts.BarData, 0, len(labels))
	for _, l := range labels {
		data = append(data, opts.BarData{Value: counts[l]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s: %s", m.DisplayName, a.Name),
			Subtitle: fmt.Sprintf("%d elements, %d categories", a.Len(), len(labels)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar
}

func numericScatter(m *geom.Model, a geom.Attribute) *charts.Scatter {
	stride := 1
	if len(a.Floats) > maxScatterPoints {
		stride = int(math.Ceil(float64(len(a.Floats)) / float64(maxScatterPoints)))
	}

	data := make([]opts.ScatterData, 0, len(a.Floats)/stride+1)
	for i := 0; i < len(a.Floats); i += stride {
		data = append(data, opts.ScatterData{Value: []interface{}{i, a.Floats[i]}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s: %s", m.DisplayName, a.Name),
			Subtitle: fmt.Sprintf("%d elements, stride %d", a.Len(), stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "element"}),
		charts.WithYAxisOpts(opts.YAxis{Name: a.Name}),
	)
	scatter.AddSeries(a.Name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}
