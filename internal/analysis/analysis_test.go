package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/getsentry/kernelplot/internal/chart"
	"github.com/getsentry/kernelplot/internal/metrics"
	"github.com/getsentry/kernelplot/internal/testutil"
	"github.com/getsentry/kernelplot/internal/trace"
)

func readTrace(t *testing.T, lines ...string) *trace.Trace {
	t.Helper()
	tr, err := trace.Read(strings.NewReader(strings.Join(lines, "\n")), trace.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tr
}

func cudaEvent(name string, startNs, endNs int) string {
	return fmt.Sprintf(`{"CudaEvent":{"kernel":{"shortName":%q},"startNs":%d,"endNs":%d}}`, name, startNs, endNs)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	tr := readTrace(t,
		`{"data":["k0","k1"]}`,
		cudaEvent("0", 1000, 3000),
		cudaEvent("0", 5000, 6000),
	)
	opts := DefaultOptions()
	opts.WindowSize = 1

	r, err := Analyze(tr, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []metrics.Series{
		{Name: "k0", Color: "#28d61f", Avg: 1.5, Window: 1, Values: []float64{2, 1}},
	}
	if diff := testutil.Diff(r.Series, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	c := Chart(r, "trace.json")
	wantChart := chart.Chart{
		Title:       "Top 7 Consuming Kernels, trace.json",
		XAxisTitle:  "Event Index",
		YAxisTitle:  "Duration, μs",
		LegendTitle: "Routine",
		Series: []chart.Series{
			{Name: "k0", Label: "k0, avg: 1.50 μs", Color: "#28d61f", Values: []float64{2, 1}},
		},
	}
	if diff := testutil.Diff(c, wantChart); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestAnalyzeExclusion(t *testing.T) {
	lines := []string{`{"data":["RunKernel","gemm"]}`}
	for i := 0; i < 20; i++ {
		lines = append(lines, cudaEvent("0", 0, 1_000_000), cudaEvent("1", 0, 1000))
	}
	r, err := Analyze(readTrace(t, lines...), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range r.Kernels {
		if k.Name == "RunKernel" {
			t.Fatal("excluded kernel was bucketed")
		}
	}
	for _, s := range Chart(r, "trace.json").Series {
		if s.Name == "RunKernel" {
			t.Fatal("excluded kernel was charted")
		}
	}
	if r.Excluded != 20 {
		t.Fatalf("wanted 20 excluded samples, got %d", r.Excluded)
	}
}

func TestAnalyzeTopNAndAverages(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines,
			cudaEvent("slow", 0, 10_000+i*1000),
			cudaEvent("medium", 0, 5000),
			cudaEvent("fast", 0, 1000),
		)
	}
	opts := DefaultOptions()
	opts.TopN = 2
	opts.WindowSize = 4

	r, err := Analyze(readTrace(t, lines...), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, s := range r.Series {
		names = append(names, s.Name)
	}
	if diff := testutil.Diff(names, []string{"slow", "medium"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	// 10, 11, ..., 21 microseconds
	if got := r.Series[0].Avg; got != 15.5 {
		t.Fatalf("wanted average of the full sequence 15.5, got %v", got)
	}
	if got := len(r.Series[0].Values); got != 12-4+1 {
		t.Fatalf("wanted %d smoothed values, got %d", 12-4+1, got)
	}
	if got := r.Series[0].Values[0]; got != 11.5 {
		t.Fatalf("wanted first window mean 11.5, got %v", got)
	}
	if len(r.Kernels) != 3 {
		t.Fatalf("all kernels should be ranked, got %d", len(r.Kernels))
	}
}

func TestAnalyzeInsufficientSamples(t *testing.T) {
	tr := readTrace(t,
		cudaEvent("rare", 0, 90_000),
		cudaEvent("common", 0, 1000),
		cudaEvent("common", 0, 1000),
		cudaEvent("common", 0, 1000),
	)
	opts := DefaultOptions()
	opts.WindowSize = 3

	r, err := Analyze(tr, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Series) != 1 || r.Series[0].Name != "common" {
		t.Fatalf("only the common kernel should be charted, got %+v", r.Series)
	}
	if len(r.Skipped) != 1 || r.Skipped[0].Name != "rare" {
		t.Fatalf("rare kernel should be reported as skipped, got %+v", r.Skipped)
	}
}

func TestAnalyzeNoResults(t *testing.T) {
	tr := readTrace(t, `{"data":["RunKernel"]}`, cudaEvent("0", 0, 1000))
	_, err := Analyze(tr, DefaultOptions())
	if !IsEmpty(err) {
		t.Fatalf("expected an empty result error, got %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	bad := []Options{{TopN: 0, WindowSize: 1}, {TopN: 1, WindowSize: 0}}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", o)
		}
	}
}
