package main

import (
	"context"
	"fmt"
	"io"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/report"
	"github.com/getsentry/kernelplot/internal/source"
	"github.com/getsentry/kernelplot/internal/trace"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

type environment struct {
	config Config

	// archive is nil unless an archive URL is configured.
	archive *blob.Bucket

	loaded *loadedTrace
}

func newEnvironment(ctx context.Context, c Config) (*environment, error) {
	if err := c.analysisOptions().Validate(); err != nil {
		return nil, err
	}
	e := environment{config: c}
	if c.ArchiveURL != "" {
		b, err := blob.OpenBucket(ctx, c.ArchiveURL)
		if err != nil {
			return nil, fmt.Errorf("opening archive %s: %w", c.ArchiveURL, err)
		}
		e.archive = b
	}
	return &e, nil
}

func (e *environment) shutdown() {
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(flushTimeout)
}

// analyze ingests the trace at location and runs the kernel analysis on it.
func (e *environment) analyze(ctx context.Context, location string) (analysis.Result, error) {
	rc, err := source.Open(ctx, location, source.Options{HTTPTimeout: e.config.HTTPTimeout})
	if err != nil {
		return analysis.Result{}, err
	}
	defer rc.Close()
	return e.analyzeReader(rc)
}

func (e *environment) analyzeReader(r io.Reader) (analysis.Result, error) {
	t, err := trace.Read(r, e.config.traceOptions())
	if err != nil {
		return analysis.Result{}, err
	}
	return analysis.Analyze(t, e.config.analysisOptions())
}

// archiveSummary stores the summary when an archive is configured and
// returns its key.
func (e *environment) archiveSummary(ctx context.Context, s report.Summary) (string, error) {
	if e.archive == nil {
		return "", nil
	}
	key, err := report.Archive(ctx, e.archive, s)
	if err != nil {
		return "", fmt.Errorf("archiving summary: %w", err)
	}
	log.Info().Str("key", key).Str("run_id", s.RunID).Msg("summary archived")
	return key, nil
}
