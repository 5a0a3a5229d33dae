package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func renderHTML(w io.Writer, c Chart) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: c.Title,
			Width:     fmt.Sprintf("%dpx", c.Width),
			Height:    fmt.Sprintf("%dpx", c.Height),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: c.Title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(true),
			Type:   "scroll",
			Orient: "vertical",
			Right:  "0",
			Top:    "middle",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: c.XAxisTitle,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: c.YAxisTitle,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "inside",
			Start: 0,
			End:   100,
		}),
		charts.WithGridOpts(opts.Grid{
			Right: "25%",
		}),
	)

	x := make([]int, c.maxLen())
	for i := range x {
		x[i] = i
	}
	line.SetXAxis(x)

	// echarts has no legend title, so it heads the legend as an empty,
	// transparent series.
	if c.LegendTitle != "" {
		line.AddSeries(c.LegendTitle, []opts.LineData{},
			charts.WithLineStyleOpts(opts.LineStyle{Color: "transparent"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "transparent"}),
		)
	}

	for _, s := range c.Series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.label(), data,
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol: opts.Bool(false),
			}),
			charts.WithLineStyleOpts(opts.LineStyle{
				Color: s.Color,
				Width: 1.5,
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color: s.Color,
			}),
		)
	}

	return line.Render(w)
}
