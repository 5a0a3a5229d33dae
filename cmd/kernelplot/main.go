package main

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/kernelplot/internal/httputil"
	"github.com/getsentry/kernelplot/internal/logutil"
)

var release string

const flushTimeout = 5 * time.Second

// cli holds the state shared by every command of one invocation.
type cli struct {
	configPath string
	env        *environment
}

func newRootCommand() *cobra.Command {
	var c cli
	root := &cobra.Command{
		Use:   "kernelplot <trace>",
		Short: "Chart the most time consuming GPU kernels of an Nsight Systems trace",
		Long: "kernelplot reads a JSONL export of an Nsight Systems trace, ranks kernels by\n" +
			"their average duration and charts a moving average of the top ones.\n" +
			"The trace can be a local path, a gs://, s3:// or file:// URL, or an http(s) URL,\n" +
			"optionally compressed with gzip, zstd, lz4 or brotli.",
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.runPlot,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.env != nil {
				c.env.shutdown()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (yaml, json, toml, edn or env)")
	pf.Int("top-n", 7, "number of kernels to chart")
	pf.Int("window-size", 10, "moving average window, in samples")
	pf.StringSlice("exclude", []string{"RunKernel"}, "kernel names left out of the ranking")
	pf.Int("string-table-base", 0, "index assigned to the first name of each string table fragment")
	pf.Bool("shrink-window", false, "shrink the window of kernels with fewer samples instead of skipping them")
	pf.StringP("output", "o", "", "output file")
	pf.String("log-level", "info", "log level")
	pf.String("archive", "", "blob bucket URL to archive run summaries to, e.g. gs://bucket or file:///tmp/runs")

	root.Flags().String("format", "html", "chart format: html, png or svg")
	root.Flags().Bool("open", true, "open the html chart in the browser")

	root.AddCommand(
		newSummaryCommand(&c),
		newFetchCommand(&c),
		newServeCommand(&c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	config.applyFlags(cmd.Flags())
	logutil.ConfigureLogger(config.LogLevel)

	if config.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              config.SentryDSN,
			EnableTracing:    cmd.Name() == "serve",
			Environment:      config.Environment,
			Release:          release,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			return err
		}
		sentry.AddGlobalEventProcessor(httputil.TagTransaction)
	}

	c.env, err = newEnvironment(cmd.Context(), config)
	return err
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("kernelplot failed")
		sentry.Flush(flushTimeout)
		os.Exit(1)
	}
}
