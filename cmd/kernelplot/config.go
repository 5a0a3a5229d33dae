package main

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/pflag"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/trace"
)

type Config struct {
	TopN            int      `yaml:"top_n" json:"top_n" env:"KERNELPLOT_TOP_N" env-default:"7" env-description:"number of kernels to chart"`
	WindowSize      int      `yaml:"window_size" json:"window_size" env:"KERNELPLOT_WINDOW_SIZE" env-default:"10" env-description:"moving average window"`
	Exclude         []string `yaml:"exclude" json:"exclude" env:"KERNELPLOT_EXCLUDE" env-default:"RunKernel" env-description:"kernel names left out of the ranking"`
	StringTableBase int      `yaml:"string_table_base" json:"string_table_base" env:"KERNELPLOT_STRING_TABLE_BASE" env-default:"0"`
	ShrinkWindow    bool     `yaml:"shrink_window" json:"shrink_window" env:"KERNELPLOT_SHRINK_WINDOW" env-default:"false"`

	Format        string `yaml:"format" json:"format" env:"KERNELPLOT_FORMAT" env-default:"html" env-description:"chart format: html, png or svg"`
	SummaryFormat string `yaml:"summary_format" json:"summary_format" env:"KERNELPLOT_SUMMARY_FORMAT" env-default:"table" env-description:"summary format: table, json, csv or xlsx"`
	Output        string `yaml:"output" json:"output" env:"KERNELPLOT_OUTPUT"`
	Open          bool   `yaml:"open" json:"open" env:"KERNELPLOT_OPEN" env-default:"true"`

	LogLevel    string `yaml:"log_level" json:"log_level" env:"KERNELPLOT_LOG_LEVEL" env-default:"info"`
	SentryDSN   string `yaml:"sentry_dsn" json:"sentry_dsn" env:"KERNELPLOT_SENTRY_DSN"`
	Environment string `yaml:"environment" json:"environment" env:"SENTRY_ENVIRONMENT" env-default:"development"`

	ArchiveURL  string        `yaml:"archive_url" json:"archive_url" env:"KERNELPLOT_ARCHIVE_URL" env-description:"blob bucket URL summaries are archived to"`
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" env:"KERNELPLOT_HTTP_TIMEOUT" env-default:"30s"`
	Port        string        `yaml:"port" json:"port" env:"PORT" env-default:"8080"`
}

// loadConfig reads the config file when one is given, then the environment.
func loadConfig(path string) (Config, error) {
	var c Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &c)
	} else {
		err = cleanenv.ReadEnv(&c)
	}
	return c, err
}

// applyFlags overrides the loaded values with the flags set on the command line.
func (c *Config) applyFlags(flags *pflag.FlagSet) {
	if flags.Changed("top-n") {
		c.TopN, _ = flags.GetInt("top-n")
	}
	if flags.Changed("window-size") {
		c.WindowSize, _ = flags.GetInt("window-size")
	}
	if flags.Changed("exclude") {
		c.Exclude, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("string-table-base") {
		c.StringTableBase, _ = flags.GetInt("string-table-base")
	}
	if flags.Changed("shrink-window") {
		c.ShrinkWindow, _ = flags.GetBool("shrink-window")
	}
	if flags.Changed("output") {
		c.Output, _ = flags.GetString("output")
	}
	if flags.Changed("open") {
		c.Open, _ = flags.GetBool("open")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("archive") {
		c.ArchiveURL, _ = flags.GetString("archive")
	}
	if flags.Changed("port") {
		c.Port, _ = flags.GetString("port")
	}
}

func (c Config) analysisOptions() analysis.Options {
	return analysis.Options{
		TopN:         c.TopN,
		WindowSize:   c.WindowSize,
		Exclude:      c.Exclude,
		ShrinkWindow: c.ShrinkWindow,
	}
}

func (c Config) traceOptions() trace.Options {
	return trace.Options{StringTableBase: c.StringTableBase}
}
