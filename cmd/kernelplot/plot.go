package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/chart"
	"github.com/getsentry/kernelplot/internal/report"
	"github.com/getsentry/kernelplot/internal/source"
)

var (
	defaultOpenBrowser = browser.OpenFile
	// openBrowser is swapped out in tests.
	openBrowser = defaultOpenBrowser
)

func (c *cli) runPlot(cmd *cobra.Command, args []string) error {
	config := c.env.config
	if cmd.Flags().Changed("format") {
		config.Format, _ = cmd.Flags().GetString("format")
	}
	format, err := chart.ParseFormat(config.Format)
	if err != nil {
		return err
	}

	location := args[0]
	name := source.Name(location)
	result, err := c.env.analyze(cmd.Context(), location)
	switch {
	case analysis.IsEmpty(err):
		log.Warn().Err(err).Str("trace", name).Msg("nothing to chart")
	case err != nil:
		return err
	}

	output := config.Output
	if output == "" {
		output = filepath.Join(os.TempDir(), name+format.Extension())
	}
	if err := renderChart(output, analysis.Chart(result, name), format); err != nil {
		return err
	}
	log.Info().
		Str("output", output).
		Int("kernels", len(result.Kernels)).
		Int("charted", len(result.Series)).
		Int("malformed_lines", result.Stats.Malformed).
		Msg("chart written")

	if len(result.Kernels) > 0 {
		if _, err := c.env.archiveSummary(cmd.Context(), report.NewSummary(name, result)); err != nil {
			return err
		}
	}
	if format == chart.FormatHTML && config.Open {
		if err := openBrowser(output); err != nil {
			log.Warn().Err(err).Str("output", output).Msg("couldn't open the chart in a browser")
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
	return err
}

func renderChart(output string, c chart.Chart, format chart.Format) error {
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := chart.Render(f, c, format); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s chart: %w", format, err)
	}
	return f.Close()
}
