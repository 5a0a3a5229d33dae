package metrics

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/getsentry/kernelplot/internal/nsys"
	"github.com/getsentry/kernelplot/internal/testutil"
	"github.com/getsentry/kernelplot/internal/trace"
)

func TestAggregatorAddEvents(t *testing.T) {
	events := []trace.Event{
		{Name: "k0", Source: nsys.SourceCUDA, Start: 1, End: 3},
		{Name: "RunKernel", Source: nsys.SourceCUDA, Start: 0, End: 100},
		{Name: "k1", Source: nsys.SourceCUDA, Start: 0, End: 4},
		{Name: "", Source: nsys.SourceCUDA, Start: 0, End: 9},
		{Name: "k0", Source: nsys.SourceCUDA, Start: 5, End: 6},
		{Name: "RunKernel", Source: nsys.SourceCUDA, Start: 0, End: 100},
	}

	a := NewAggregator([]string{"RunKernel"})
	a.AddEvents(events)

	if diff := testutil.Diff(a.Kernels(), []string{"k0", "k1"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if diff := testutil.Diff(a.Durations("k0"), []float64{2, 1}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if got := a.Durations("RunKernel"); len(got) != 0 {
		t.Fatalf("excluded kernel should not be bucketed, got %v", got)
	}
	if a.Excluded() != 2 {
		t.Fatalf("wanted 2 excluded samples, got %d", a.Excluded())
	}
}

func TestAggregatorToMetrics(t *testing.T) {
	a := NewAggregator(nil)
	for _, d := range []float64{2, 1} {
		a.Add("k0", d)
	}
	for _, d := range []float64{4, 4, 4} {
		a.Add("k1", d)
	}
	a.Add("k2", 1.5)

	want := []KernelMetrics{
		{
			Name: "k1", Color: Color("k1"), Count: 3,
			Avg: 4, Sum: 12, Min: 4, Max: 4, P50: 4, P95: 4, P99: 4,
			Durations: []float64{4, 4, 4},
		},
		{
			Name: "k0", Color: "#28d61f", Count: 2,
			Avg: 1.5, Sum: 3, Min: 1, Max: 2, P50: 1.5, P95: 2, P99: 2,
			Durations: []float64{2, 1},
		},
		{
			Name: "k2", Color: Color("k2"), Count: 1,
			Avg: 1.5, Sum: 1.5, Min: 1.5, Max: 1.5, P50: 1.5, P95: 1.5, P99: 1.5,
			Durations: []float64{1.5},
		},
	}
	if diff := testutil.Diff(a.ToMetrics(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestAggregatorIsDeterministic(t *testing.T) {
	build := func() []KernelMetrics {
		a := NewAggregator([]string{"RunKernel"})
		for i := 0; i < 50; i++ {
			a.Add("b", float64(i%3))
			a.Add("a", float64(i%5))
			a.Add("c", 1)
			a.Add("RunKernel", 1000)
		}
		return a.ToMetrics()
	}
	if diff := testutil.Diff(build(), build()); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestTop(t *testing.T) {
	metrics := []KernelMetrics{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	tests := []struct {
		name string
		n    int
		want []KernelMetrics
	}{
		{name: "fewer than available", n: 2, want: metrics[:2]},
		{name: "more than available", n: 7, want: metrics},
		{name: "zero", n: 0, want: nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := testutil.Diff(Top(metrics, test.n), test.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		window int
		want   []float64
	}{
		{name: "window of one", xs: []float64{2, 1}, window: 1, want: []float64{2, 1}},
		{name: "full window", xs: []float64{2, 1}, window: 2, want: []float64{1.5}},
		{name: "keeps order", xs: []float64{4, 0, 8, 2, 6}, window: 2, want: []float64{2, 4, 5, 4}},
		{name: "window of three", xs: []float64{3, 6, 9, 12}, window: 3, want: []float64{6, 9}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := MovingAverage(test.xs, test.window)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(test.xs)-test.window+1 {
				t.Fatalf("wanted %d values, got %d", len(test.xs)-test.window+1, len(got))
			}
			if diff := testutil.Diff(got, test.want, testutil.ApproxFloats()); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestMovingAverageErrors(t *testing.T) {
	if _, err := MovingAverage([]float64{1}, 2); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
	if _, err := MovingAverage([]float64{1}, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestSmooth(t *testing.T) {
	top := []KernelMetrics{
		{Name: "long", Color: "#000001", Avg: 2, Durations: []float64{1, 2, 3}},
		{Name: "short", Color: "#000002", Avg: 1, Durations: []float64{1}},
	}

	t.Run("skip", func(t *testing.T) {
		series, skipped := Smooth(top, 2, false)
		wantSeries := []Series{
			{Name: "long", Color: "#000001", Avg: 2, Window: 2, Values: []float64{1.5, 2.5}},
		}
		if diff := testutil.Diff(series, wantSeries); diff != "" {
			t.Fatalf("Result mismatch: got - want +\n%s", diff)
		}
		wantSkipped := []SkippedKernel{{Name: "short", Count: 1, Window: 2}}
		if diff := testutil.Diff(skipped, wantSkipped, cmpopts.IgnoreFields(SkippedKernel{}, "Err", "Reason")); diff != "" {
			t.Fatalf("Result mismatch: got - want +\n%s", diff)
		}
		if !errors.Is(skipped[0].Err, ErrInsufficientSamples) {
			t.Fatalf("expected ErrInsufficientSamples, got %v", skipped[0].Err)
		}
	})

	t.Run("shrink", func(t *testing.T) {
		series, skipped := Smooth(top, 2, true)
		if len(skipped) != 0 {
			t.Fatalf("nothing should be skipped, got %v", skipped)
		}
		want := []Series{
			{Name: "long", Color: "#000001", Avg: 2, Window: 2, Values: []float64{1.5, 2.5}},
			{Name: "short", Color: "#000002", Avg: 1, Window: 1, Values: []float64{1}},
		}
		if diff := testutil.Diff(series, want); diff != "" {
			t.Fatalf("Result mismatch: got - want +\n%s", diff)
		}
	})
}

func TestColor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "k0", want: "#28d61f"},
		{name: "bar", want: "#37b51d"},
		{name: "[NVTX]Region", want: "#1c6547"},
		{name: "gemm_kernel", want: "#878796"},
	}
	for _, test := range tests {
		if got := Color(test.name); got != test.want {
			t.Fatalf("%s: wanted: %s, got: %s", test.name, test.want, got)
		}
	}
}
