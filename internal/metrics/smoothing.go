package metrics

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidWindow       = errors.New("window size must be positive")
	ErrInsufficientSamples = errors.New("insufficient samples for smoothing")
)

type (
	// Series is the smoothed duration sequence of one kernel.
	Series struct {
		Name   string
		Color  string
		Avg    float64
		Window int
		Values []float64
	}

	SkippedKernel struct {
		Name   string `json:"name"`
		Count  int    `json:"count"`
		Window int    `json:"window"`
		Reason string `json:"reason"`
		Err    error  `json:"-"`
	}
)

// MovingAverage slides a window of the given size over xs and returns the
// mean of each full window, in order. The result has len(xs)-window+1 values.
func MovingAverage(xs []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}
	if len(xs) < window {
		return nil, fmt.Errorf("%w: %d samples, window of %d", ErrInsufficientSamples, len(xs), window)
	}
	out := make([]float64, len(xs)-window+1)
	for i := range out {
		var sum float64
		for _, x := range xs[i : i+window] {
			sum += x
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// Smooth builds a series per kernel. Kernels with fewer samples than window
// are skipped, unless shrink is set, in which case their window is reduced
// to their sample count.
func Smooth(top []KernelMetrics, window int, shrink bool) ([]Series, []SkippedKernel) {
	series := make([]Series, 0, len(top))
	var skipped []SkippedKernel
	for _, m := range top {
		w := window
		if shrink && len(m.Durations) < w && len(m.Durations) > 0 {
			w = len(m.Durations)
			log.Debug().
				Str("kernel", m.Name).
				Int("samples", len(m.Durations)).
				Int("window", w).
				Msg("shrinking smoothing window")
		}
		values, err := MovingAverage(m.Durations, w)
		if err != nil {
			log.Warn().
				Err(err).
				Str("kernel", m.Name).
				Int("samples", len(m.Durations)).
				Int("window", w).
				Msg("kernel left out of the chart")
			skipped = append(skipped, SkippedKernel{
				Name:   m.Name,
				Count:  len(m.Durations),
				Window: w,
				Reason: err.Error(),
				Err:    err,
			})
			continue
		}
		series = append(series, Series{
			Name:   m.Name,
			Color:  m.Color,
			Avg:    m.Avg,
			Window: w,
			Values: values,
		})
	}
	return series, skipped
}

// Color derives a stable "#rrggbb" color from the md5 of the kernel name.
func Color(name string) string {
	sum := md5.Sum([]byte(name))
	return "#" + hex.EncodeToString(sum[:])[:6]
}
