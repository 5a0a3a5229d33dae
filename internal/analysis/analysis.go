// Package analysis turns an ingested trace into ranked kernel metrics and the
// smoothed series charted for the top kernels.
package analysis

import (
	"errors"
	"fmt"

	"github.com/getsentry/kernelplot/internal/chart"
	"github.com/getsentry/kernelplot/internal/errorutil"
	"github.com/getsentry/kernelplot/internal/metrics"
	"github.com/getsentry/kernelplot/internal/trace"
)

type (
	Options struct {
		TopN         int
		WindowSize   int
		Exclude      []string
		ShrinkWindow bool
	}

	Result struct {
		// Kernels holds every bucketed kernel, ranked by average duration.
		Kernels  []metrics.KernelMetrics
		Top      []metrics.KernelMetrics
		Series   []metrics.Series
		Skipped  []metrics.SkippedKernel
		Excluded int
		Stats    trace.Stats
		Options  Options
	}
)

func DefaultOptions() Options {
	return Options{
		TopN:       7,
		WindowSize: 10,
		Exclude:    []string{"RunKernel"},
	}
}

func (o Options) Validate() error {
	if o.TopN < 1 {
		return fmt.Errorf("top n must be positive, got %d", o.TopN)
	}
	if o.WindowSize < 1 {
		return fmt.Errorf("window size must be positive, got %d", o.WindowSize)
	}
	return nil
}

// Analyze buckets the trace's events per kernel and smooths the top ones.
func Analyze(t *trace.Trace, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	a := metrics.NewAggregator(opts.Exclude)
	a.AddEvents(t.Events)

	r := Result{
		Kernels:  a.ToMetrics(),
		Excluded: a.Excluded(),
		Stats:    t.Stats,
		Options:  opts,
	}
	if len(r.Kernels) == 0 {
		return r, fmt.Errorf("%w: no kernel durations in %d events", errorutil.ErrNoResults, t.Stats.Events)
	}
	r.Top = metrics.Top(r.Kernels, opts.TopN)
	r.Series, r.Skipped = metrics.Smooth(r.Top, opts.WindowSize, opts.ShrinkWindow)
	return r, nil
}

// IsEmpty reports whether err only means the trace had nothing to show.
func IsEmpty(err error) bool {
	return errors.Is(err, errorutil.ErrNoResults)
}

// Chart lays out the smoothed series the same way for every output format.
func Chart(r Result, name string) chart.Chart {
	c := chart.Chart{
		Title:       fmt.Sprintf("Top %d Consuming Kernels, %s", r.Options.TopN, name),
		XAxisTitle:  "Event Index",
		YAxisTitle:  "Duration, μs",
		LegendTitle: "Routine",
		Series:      make([]chart.Series, 0, len(r.Series)),
	}
	for _, s := range r.Series {
		c.Series = append(c.Series, chart.Series{
			Name:   s.Name,
			Label:  fmt.Sprintf("%s, avg: %.2f μs", s.Name, s.Avg),
			Color:  s.Color,
			Values: s.Values,
		})
	}
	return c
}
