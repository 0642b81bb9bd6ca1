package plot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/edp1096/circuitsim/pkg/util"
)

// RenderHTML writes an interactive page with one line chart for node
// voltages and one for element currents.
func (c *Chart) RenderHTML(w io.Writer) error {
	page := components.NewPage()
	page.SetPageTitle(c.Title)

	for _, part := range []struct {
		prefix, title, unit string
	}{
		{"V(", "Node voltages", "V"},
		{"I(", "Element currents", "A"},
	} {
		sub := c.Select(part.prefix)
		if len(sub.Traces) == 0 {
			continue
		}
		page.AddCharts(sub.lineChart(part.title, part.unit))
	}
	if len(page.Charts) == 0 {
		return fmt.Errorf("chart %q has no traces", c.Title)
	}
	return page.Render(w)
}

func (c *Chart) lineChart(subtitle, unit string) *charts.Line {
	xName := "t"
	if c.IsSweep() {
		xName = "sweep"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: xName,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  unit,
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)

	labels := make([]string, len(c.X))
	for i, x := range c.X {
		if c.IsSweep() {
			labels[i] = fmt.Sprintf("%g", x)
		} else {
			labels[i] = util.FormatValueFactor(x, "s")
		}
	}
	line.SetXAxis(labels)

	for _, tr := range c.Traces {
		data := make([]opts.LineData, len(tr.Values))
		for i, v := range tr.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(tr.Name, data, charts.WithLineChartOpts(opts.LineChart{
			ShowSymbol: opts.Bool(false),
		}))
	}
	return line
}
