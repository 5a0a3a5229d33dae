package chart

import (
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func renderSVG(w io.Writer, c Chart) error {
	series := make([]gochart.Series, 0, len(c.Series))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, s := range c.Series {
		xs := make([]float64, len(s.Values))
		for i, v := range s.Values {
			xs[i] = float64(i)
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
		col := drawing.ColorFromHex(strings.TrimPrefix(s.Color, "#"))
		series = append(series, gochart.ContinuousSeries{
			Name:    s.label(),
			XValues: xs,
			YValues: s.Values,
			Style: gochart.Style{
				StrokeColor: col,
				StrokeWidth: 1.5,
			},
		})
	}

	// go-chart refuses zero-width ranges, which a single sample or a flat
	// series would produce.
	if math.IsInf(yMin, 0) {
		yMin, yMax = 0, 1
	}
	if yMin == yMax {
		yMin, yMax = yMin-1, yMax+1
	}
	xMax := float64(c.maxLen() - 1)
	if xMax < 1 {
		xMax = 1
	}
	// go-chart legends have no title and skip hidden series, so the title is
	// a transparent series listed first.
	if c.LegendTitle != "" {
		series = append([]gochart.Series{gochart.ContinuousSeries{
			Name:    c.LegendTitle,
			XValues: []float64{0, xMax},
			YValues: []float64{yMin, yMin},
			Style: gochart.Style{
				StrokeColor: drawing.Color{R: 255, G: 255, B: 255, A: 0},
				StrokeWidth: 1,
			},
		}}, series...)
	}
	if len(series) == 0 {
		series = append(series, gochart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{yMin, yMin},
			Style:   gochart.Style{Hidden: true},
		})
	}
	graph := gochart.Chart{
		Title:  c.Title,
		Width:  c.Width,
		Height: c.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:  c.XAxisTitle,
			Range: &gochart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: gochart.YAxis{
			Name:  c.YAxisTitle,
			Range: &gochart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}
	return graph.Render(gochart.SVG, w)
}
