package chart

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// pixels per inch used to convert the chart size for gonum.
const dpi = 96

func renderPNG(w io.Writer, c Chart) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XAxisTitle
	p.Y.Label.Text = c.YAxisTitle
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	if c.LegendTitle != "" {
		p.Legend.Add(c.LegendTitle)
	}

	for _, s := range c.Series {
		pts := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		rgba, err := parseHexColor(s.Color)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = rgba
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.label(), line)
	}

	width := vg.Length(c.Width) * vg.Inch / dpi
	height := vg.Length(c.Height) * vg.Inch / dpi
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
