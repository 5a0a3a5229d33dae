package metrics

import (
	"sort"

	"github.com/getsentry/kernelplot/internal/quantile"
	"github.com/getsentry/kernelplot/internal/trace"
)

// Aggregator buckets durations per kernel name, keeping the order in which
// samples were encountered.
type Aggregator struct {
	exclude   map[string]struct{}
	durations map[string][]float64
	order     []string
	excluded  int
}

type KernelMetrics struct {
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Count     int       `json:"count"`
	Avg       float64   `json:"avg_us"`
	Sum       float64   `json:"sum_us"`
	Min       float64   `json:"min_us"`
	Max       float64   `json:"max_us"`
	P50       float64   `json:"p50_us"`
	P95       float64   `json:"p95_us"`
	P99       float64   `json:"p99_us"`
	Durations []float64 `json:"-"`
}

func NewAggregator(exclude []string) *Aggregator {
	a := &Aggregator{
		exclude:   make(map[string]struct{}, len(exclude)),
		durations: make(map[string][]float64),
	}
	for _, name := range exclude {
		a.exclude[name] = struct{}{}
	}
	return a
}

// Add buckets a duration under name. Unnamed and excluded samples are dropped
// and Add returns false.
func (a *Aggregator) Add(name string, duration float64) bool {
	if name == "" {
		return false
	}
	if _, ok := a.exclude[name]; ok {
		a.excluded++
		return false
	}
	d, ok := a.durations[name]
	if !ok {
		a.order = append(a.order, name)
	}
	a.durations[name] = append(d, duration)
	return true
}

func (a *Aggregator) AddEvents(events []trace.Event) {
	for _, e := range events {
		a.Add(e.Name, e.Duration())
	}
}

// Durations returns the samples of a kernel in encounter order.
func (a *Aggregator) Durations(name string) []float64 {
	return a.durations[name]
}

// Kernels returns kernel names in the order they were first seen.
func (a *Aggregator) Kernels() []string {
	return a.order
}

// Excluded returns how many samples were dropped by the exclusion list.
func (a *Aggregator) Excluded() int {
	return a.excluded
}

// ToMetrics computes per kernel statistics, sorted by descending average
// duration. Kernels with the same average keep their first-seen order.
func (a *Aggregator) ToMetrics() []KernelMetrics {
	metrics := make([]KernelMetrics, 0, len(a.order))
	for _, name := range a.order {
		durations := a.durations[name]
		q := quantile.Quantile{Xs: durations}
		min, max := q.Bounds()
		sum := quantile.Sum(durations)
		metrics = append(metrics, KernelMetrics{
			Name:      name,
			Color:     Color(name),
			Count:     len(durations),
			Avg:       quantile.Mean(durations),
			Sum:       sum,
			Min:       min,
			Max:       max,
			P50:       q.Percentile(0.5),
			P95:       q.Percentile(0.95),
			P99:       q.Percentile(0.99),
			Durations: durations,
		})
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Avg > metrics[j].Avg
	})
	return metrics
}

// Top returns the first n metrics, or all of them if there are fewer.
func Top(metrics []KernelMetrics, n int) []KernelMetrics {
	if n <= 0 {
		return nil
	}
	if len(metrics) > n {
		return metrics[:n]
	}
	return metrics
}
