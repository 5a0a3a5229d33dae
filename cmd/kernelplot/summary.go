package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getsentry/kernelplot/internal/report"
	"github.com/getsentry/kernelplot/internal/source"
	"github.com/getsentry/kernelplot/internal/storageutil"
)

func newSummaryCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <trace>",
		Short: "Print every kernel of a trace ranked by average duration",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runSummary,
	}
	cmd.Flags().String("format", "table", "summary format: table, json, csv or xlsx")
	return cmd
}

func newFetchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <key>",
		Short: "Print a summary previously archived with --archive",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runFetch,
	}
	cmd.Flags().String("format", "table", "summary format: table, json, csv or xlsx")
	return cmd
}

func (c *cli) summaryFormat(cmd *cobra.Command) (report.Format, error) {
	f := c.env.config.SummaryFormat
	if cmd.Flags().Changed("format") {
		f, _ = cmd.Flags().GetString("format")
	}
	return report.ParseFormat(f)
}

func (c *cli) runSummary(cmd *cobra.Command, args []string) error {
	format, err := c.summaryFormat(cmd)
	if err != nil {
		return err
	}
	location := args[0]
	result, err := c.env.analyze(cmd.Context(), location)
	if err != nil {
		return err
	}
	s := report.NewSummary(source.Name(location), result)
	if _, err := c.env.archiveSummary(cmd.Context(), s); err != nil {
		return err
	}
	return c.writeSummary(cmd, s, format)
}

func (c *cli) runFetch(cmd *cobra.Command, args []string) error {
	if c.env.archive == nil {
		return errors.New("no archive configured, set --archive or KERNELPLOT_ARCHIVE_URL")
	}
	format, err := c.summaryFormat(cmd)
	if err != nil {
		return err
	}
	s, err := report.Load(cmd.Context(), c.env.archive, args[0])
	if errors.Is(err, storageutil.ErrObjectNotFound) {
		return fmt.Errorf("no archived summary at %s", args[0])
	}
	if err != nil {
		return err
	}
	return c.writeSummary(cmd, s, format)
}

func (c *cli) writeSummary(cmd *cobra.Command, s report.Summary, format report.Format) error {
	var w io.Writer = cmd.OutOrStdout()
	if output := c.env.config.Output; output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := report.Write(f, s, format); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, output)
		return err
	}
	return report.Write(w, s, format)
}
