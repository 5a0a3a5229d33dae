package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"
	"gocloud.dev/blob/memblob"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/metrics"
	"github.com/getsentry/kernelplot/internal/storageutil"
	"github.com/getsentry/kernelplot/internal/testutil"
	"github.com/getsentry/kernelplot/internal/trace"
)

func testSummary() Summary {
	return Summary{
		RunID:       "4b7a2f0c-1d2e-4c4a-9a53-0f6a2b0a9f11",
		Source:      "resnet50.json",
		GeneratedAt: time.Date(2023, 5, 4, 10, 30, 0, 0, time.UTC),
		TopN:        7,
		WindowSize:  10,
		Exclude:     []string{"RunKernel"},
		Stats:       trace.Stats{Lines: 4200, Strings: 1250, Events: 4100, Malformed: 2},
		Excluded:    12,
		Kernels: []metrics.KernelMetrics{
			{Name: "gemm", Color: "#aabbcc", Count: 3, Avg: 1234.5, Sum: 3703.5, Min: 1000, Max: 1500, P50: 1203.5, P95: 1470.35, P99: 1494.07},
			{Name: "conv", Color: "#112233", Count: 2, Avg: 2.5, Sum: 5, Min: 2, Max: 3, P50: 2.5, P95: 2.95, P99: 2.99},
		},
		Skipped: []metrics.SkippedKernel{
			{Name: "rare", Count: 1, Window: 10, Reason: "insufficient samples for smoothing"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"table": FormatTable, "JSON": FormatJSON, ".csv": FormatCSV, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("wanted %q, got %q", want, got)
		}
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestNewSummary(t *testing.T) {
	r := analysis.Result{
		Kernels:  testSummary().Kernels,
		Excluded: 12,
		Stats:    trace.Stats{Events: 5},
		Options:  analysis.DefaultOptions(),
	}
	s := NewSummary("trace.json", r)
	if s.RunID == "" || s.GeneratedAt.IsZero() {
		t.Fatalf("run id and timestamp should be set: %+v", s)
	}
	if s.TopN != 7 || s.WindowSize != 10 || s.Excluded != 12 || len(s.Kernels) != 2 {
		t.Fatalf("summary doesn't reflect the result: %+v", s)
	}
	if other := NewSummary("trace.json", r); other.RunID == s.RunID {
		t.Fatal("each summary should get its own run id")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSummary(), FormatTable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"resnet50.json", "4,100", "1,250", "1,234.50", "gemm", "conv", "skipped rare"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in\n%s", want, out)
		}
	}
	if strings.Index(out, "gemm") > strings.Index(out, "conv") {
		t.Fatal("kernels should keep their rank order")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSummary(), FormatCSV); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{
		columns,
		{"1", "gemm", "#aabbcc", "3", "1234.5", "3703.5", "1000", "1500", "1203.5", "1470.35", "1494.07"},
		{"2", "conv", "#112233", "2", "2.5", "5", "2", "3", "2.5", "2.95", "2.99"},
	}
	if diff := testutil.Diff(rows, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSummary(), FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := testutil.Diff(got, testSummary()); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if !strings.Contains(buf.String(), `"avg_us": 1234.5`) {
		t.Fatalf("expected microsecond fields in\n%s", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSummary(), FormatXLSX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("we should be able to open the workbook: %v", err)
	}
	defer f.Close()

	if diff := testutil.Diff(f.GetSheetList(), []string{kernelsSheet, runSheet}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	rows, err := f.GetRows(kernelsSheet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("wanted a header and 2 kernels, got %d rows", len(rows))
	}
	if diff := testutil.Diff(rows[0], columns); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if rows[1][1] != "gemm" || rows[2][1] != "conv" {
		t.Fatalf("unexpected kernel rows: %v", rows[1:])
	}
	id, err := f.GetCellValue(runSheet, "B1")
	if err != nil || id != testSummary().RunID {
		t.Fatalf("wanted run id in the run sheet, got %q (%v)", id, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteTableReportsWriteErrors(t *testing.T) {
	if err := Write(failingWriter{}, testSummary(), FormatTable); err == nil {
		t.Fatal("expected the write error to be returned")
	}
}

func TestWriteJSONIgnoresNonFiniteTimestamps(t *testing.T) {
	input := strings.Join([]string{
		`{"data":["gemm"]}`,
		`{"CudaEvent":{"kernel":{"shortName":"0"},"startNs":"nan","endNs":"1000"}}`,
		`{"CudaEvent":{"kernel":{"shortName":"0"},"startNs":"0","endNs":"inf"}}`,
		`{"CudaEvent":{"kernel":{"shortName":"0"},"startNs":"0","endNs":"2000"}}`,
	}, "\n")
	tr, err := trace.Read(strings.NewReader(input), trace.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Stats.Malformed != 2 {
		t.Fatalf("wanted 2 malformed lines, got %d", tr.Stats.Malformed)
	}
	r, err := analysis.Analyze(tr, analysis.Options{TopN: 1, WindowSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, NewSummary("trace.json", r), FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Kernels) != 1 || got.Kernels[0].Avg != 2 {
		t.Fatalf("wanted gemm averaging 2 μs, got %+v", got.Kernels)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, testSummary(), Format("yaml")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s := testSummary()
	key, err := Archive(ctx, bucket, s)
	if err != nil {
		t.Fatalf("we should be able to archive: %v", err)
	}
	if key != "resnet50.json/4b7a2f0c-1d2e-4c4a-9a53-0f6a2b0a9f11.json.lz4" {
		t.Fatalf("unexpected key %q", key)
	}
	got, err := Load(ctx, bucket, key)
	if err != nil {
		t.Fatalf("we should be able to load the summary back: %v", err)
	}
	if diff := testutil.Diff(got, s); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if _, err := Load(ctx, bucket, "resnet50.json/missing.json.lz4"); !errors.Is(err, storageutil.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
