// Package report builds the ranked kernel summary of a run, writes it in
// human and machine readable formats and archives it to blob storage.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/metrics"
	"github.com/getsentry/kernelplot/internal/trace"
)

type (
	Format string

	Summary struct {
		RunID       string                  `json:"run_id"`
		Source      string                  `json:"source"`
		GeneratedAt time.Time               `json:"generated_at"`
		TopN        int                     `json:"top_n"`
		WindowSize  int                     `json:"window_size"`
		Exclude     []string                `json:"exclude"`
		Stats       trace.Stats             `json:"stats"`
		Excluded    int                     `json:"excluded"`
		Kernels     []metrics.KernelMetrics `json:"kernels"`
		Skipped     []metrics.SkippedKernel `json:"skipped,omitempty"`
	}
)

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown summary format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}

// NewSummary captures every ranked kernel of r, not only the charted ones.
func NewSummary(source string, r analysis.Result) Summary {
	opts := r.Options
	return Summary{
		RunID:       uuid.New().String(),
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		TopN:        opts.TopN,
		WindowSize:  opts.WindowSize,
		Exclude:     opts.Exclude,
		Stats:       r.Stats,
		Excluded:    r.Excluded,
		Kernels:     r.Kernels,
		Skipped:     r.Skipped,
	}
}
