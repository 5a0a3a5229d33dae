// Package chart renders line charts of kernel durations. The same chart can
// be rendered as an interactive HTML page, a PNG or an SVG.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
)

var ErrUnknownFormat = errors.New("unknown chart format")

const (
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"

	defaultWidth  = 1280
	defaultHeight = 720
)

type (
	Format string

	// Series is one line on the chart. Values are plotted against their
	// 0-based index.
	Series struct {
		Name   string
		Label  string
		Color  string
		Values []float64
	}

	Chart struct {
		Title       string
		XAxisTitle  string
		YAxisTitle  string
		LegendTitle string
		Series      []Series
		Width       int
		Height      int
	}
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatHTML, FormatPNG, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	}
	return "application/octet-stream"
}

// Render writes c to w in the requested format.
func Render(w io.Writer, c Chart, f Format) error {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	switch f {
	case FormatHTML:
		return renderHTML(w, c)
	case FormatPNG:
		return renderPNG(w, c)
	case FormatSVG:
		return renderSVG(w, c)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// maxLen returns the length of the longest series.
func (c Chart) maxLen() int {
	n := 0
	for _, s := range c.Series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	return n
}

func (s Series) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// parseHexColor parses "#rrggbb".
func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
