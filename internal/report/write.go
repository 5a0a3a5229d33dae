package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/getsentry/kernelplot/internal/metrics"
)

var columns = []string{
	"rank", "name", "color", "count",
	"avg_us", "sum_us", "min_us", "max_us", "p50_us", "p95_us", "p99_us",
}

var printer = message.NewPrinter(language.English)

// Write encodes s in the given format.
func Write(w io.Writer, s Summary, f Format) error {
	switch f {
	case FormatTable:
		return writeTable(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatCSV:
		return writeCSV(w, s)
	case FormatXLSX:
		return writeXLSX(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func writeTable(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := []struct {
		format string
		value  interface{}
	}{
		{"trace\t%s\t\n", s.Source},
		{"run\t%s\t\n", s.RunID},
		{"events\t%d\t\n", s.Stats.Events},
		{"string table entries\t%d\t\n", s.Stats.Strings},
		{"malformed lines\t%d\t\n", s.Stats.Malformed},
		{"excluded samples\t%d\t\n", s.Excluded},
	}
	for _, h := range header {
		if _, err := printer.Fprintf(tw, h.format, h.value); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, "#\tkernel\tcount\tavg μs\tmin μs\tp50 μs\tp95 μs\tp99 μs\tmax μs\ttotal μs\t"); err != nil {
		return err
	}
	for i, k := range s.Kernels {
		_, err := printer.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			i+1, k.Name, k.Count, k.Avg, k.Min, k.P50, k.P95, k.P99, k.Max, k.Sum)
		if err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, sk := range s.Skipped {
		if _, err := fmt.Fprintf(w, "\nskipped %s: %s\n", sk.Name, sk.Reason); err != nil {
			return err
		}
	}
	return nil
}

func row(rank int, k metrics.KernelMetrics) []string {
	ff := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return []string{
		strconv.Itoa(rank), k.Name, k.Color, strconv.Itoa(k.Count),
		ff(k.Avg), ff(k.Sum), ff(k.Min), ff(k.Max), ff(k.P50), ff(k.P95), ff(k.P99),
	}
}

func writeCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i, k := range s.Kernels {
		if err := cw.Write(row(i+1, k)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	kernelsSheet = "Kernels"
	runSheet     = "Run"
)

func writeXLSX(w io.Writer, s Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", kernelsSheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(kernelsSheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(kernelsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, k := range s.Kernels {
		values := []interface{}{
			i + 1, k.Name, k.Color, k.Count,
			k.Avg, k.Sum, k.Min, k.Max, k.P50, k.P95, k.P99,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(kernelsSheet, cell, &values); err != nil {
			return err
		}
		// the kernel's chart color, so the sheet reads like the legend
		nameCell, _ := excelize.CoordinatesToCellName(2, i+2)
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: k.Color}})
		if err == nil {
			_ = f.SetCellStyle(kernelsSheet, nameCell, nameCell, style)
		}
	}
	if err := f.SetColWidth(kernelsSheet, "B", "B", 48); err != nil {
		return err
	}
	if err := f.SetPanes(kernelsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return err
	}
	run := [][]interface{}{
		{"run_id", s.RunID},
		{"source", s.Source},
		{"generated_at", s.GeneratedAt.Format(time.RFC3339)},
		{"top_n", s.TopN},
		{"window_size", s.WindowSize},
		{"lines", s.Stats.Lines},
		{"events", s.Stats.Events},
		{"strings", s.Stats.Strings},
		{"malformed", s.Stats.Malformed},
		{"excluded", s.Excluded},
		{"skipped", len(s.Skipped)},
	}
	for i, r := range run {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(runSheet, cell, &r); err != nil {
			return err
		}
	}
	return f.Write(w)
}
