package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/kernelplot/internal/analysis"
	"github.com/getsentry/kernelplot/internal/chart"
	"github.com/getsentry/kernelplot/internal/httputil"
	"github.com/getsentry/kernelplot/internal/report"
	"github.com/getsentry/kernelplot/internal/source"
	"github.com/getsentry/kernelplot/internal/storageutil"
)

// ArchiveKeyHeader carries the archive key of an uploaded trace's summary.
const ArchiveKeyHeader = "Kernelplot-Archive-Key"

// loadedTrace is the trace served on / and /kernels.
type loadedTrace struct {
	name    string
	result  analysis.Result
	summary report.Summary
}

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [trace]",
		Short: "Serve kernel charts over HTTP",
		Long: "serve renders the chart of the given trace on / and analyzes traces\n" +
			"uploaded to POST /traces.",
		Args: cobra.MaximumNArgs(1),
		RunE: c.runServe,
	}
	cmd.Flags().String("port", "8080", "port to listen on")
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := c.env.load(cmd.Context(), args[0]); err != nil {
			return err
		}
	}
	handler, err := c.env.newHandler()
	if err != nil {
		return err
	}
	server := http.Server{
		Addr:              ":" + c.env.config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	waitForShutdown := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}
		close(waitForShutdown)
	}()

	log.Info().Str("addr", server.Addr).Msg("serving")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-waitForShutdown
	return nil
}

func (e *environment) load(ctx context.Context, location string) error {
	name := source.Name(location)
	result, err := e.analyze(ctx, location)
	if err != nil && !analysis.IsEmpty(err) {
		return err
	}
	e.loaded = &loadedTrace{
		name:    name,
		result:  result,
		summary: report.NewSummary(name, result),
	}
	log.Info().Str("trace", name).Int("kernels", len(result.Kernels)).Msg("trace loaded")
	return nil
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/", e.getChart},
		{http.MethodGet, "/chart/:format", e.getChart},
		{http.MethodGet, "/kernels", e.getKernels},
		{http.MethodGet, "/summaries", e.getSummary},
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/traces", e.postTrace},
	}

	router := httprouter.New()
	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		router.Handler(route.method, route.path, compress(handlerFunc))
	}
	return router, nil
}

func (e *environment) newHandler() (http.Handler, error) {
	router, err := e.newRouter()
	if err != nil {
		return nil, err
	}
	return sentryhttp.New(sentryhttp.Options{}).Handle(router), nil
}

func (e *environment) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (e *environment) getChart(w http.ResponseWriter, r *http.Request) {
	if e.loaded == nil {
		http.Error(w, "no trace loaded, upload one to POST /traces", http.StatusNotFound)
		return
	}
	format := chart.FormatHTML
	if raw := httprouter.ParamsFromContext(r.Context()).ByName("format"); raw != "" {
		f, err := chart.ParseFormat(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	writeChart(w, r, analysis.Chart(e.loaded.result, e.loaded.name), format)
}

func (e *environment) getKernels(w http.ResponseWriter, r *http.Request) {
	if e.loaded == nil {
		http.Error(w, "no trace loaded", http.StatusNotFound)
		return
	}
	writeSummary(w, r, e.loaded.summary, report.FormatJSON)
}

func (e *environment) getSummary(w http.ResponseWriter, r *http.Request) {
	params, logger, ok := httputil.QueryParameters(w, r, []string{"key"}, map[string]string{"format": "json"})
	if !ok {
		return
	}
	if e.archive == nil {
		http.Error(w, "no archive configured", http.StatusNotFound)
		return
	}
	format, err := report.ParseFormat(params["format"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := report.Load(r.Context(), e.archive, params["key"])
	if errors.Is(err, storageutil.ErrObjectNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		captureException(r, err)
		logger.Err(err).Msg("couldn't load archived summary")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeSummary(w, r, s, format)
}

// postTrace analyzes the uploaded trace and answers with its chart or summary,
// depending on the format query parameter.
func (e *environment) postTrace(w http.ResponseWriter, r *http.Request) {
	params, logger, ok := httputil.QueryParameters(w, r, nil, map[string]string{"format": "json", "name": "upload"})
	if !ok {
		return
	}
	chartFormat, chartErr := chart.ParseFormat(params["format"])
	summaryFormat, summaryErr := report.ParseFormat(params["format"])
	if chartErr != nil && summaryErr != nil {
		http.Error(w, summaryErr.Error(), http.StatusBadRequest)
		return
	}

	result, err := e.analyzeReader(r.Body)
	if err != nil && !analysis.IsEmpty(err) {
		logger.Warn().Err(err).Msg("couldn't read uploaded trace")
		http.Error(w, "couldn't read trace", http.StatusBadRequest)
		return
	}
	logger.Info().
		Int("events", result.Stats.Events).
		Int("malformed_lines", result.Stats.Malformed).
		Int("kernels", len(result.Kernels)).
		Msg("trace analyzed")

	name := params["name"]
	s := report.NewSummary(name, result)
	if len(result.Kernels) > 0 {
		key, err := e.archiveSummary(r.Context(), s)
		if err != nil {
			captureException(r, err)
			logger.Err(err).Msg("couldn't archive summary")
		} else if key != "" {
			w.Header().Set(ArchiveKeyHeader, key)
		}
	}

	if chartErr == nil {
		writeChart(w, r, analysis.Chart(result, name), chartFormat)
		return
	}
	writeSummary(w, r, s, summaryFormat)
}

func writeChart(w http.ResponseWriter, r *http.Request, c chart.Chart, f chart.Format) {
	var b bytes.Buffer
	if err := chart.Render(&b, c, f); err != nil {
		captureException(r, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Bytes())
}

func writeSummary(w http.ResponseWriter, r *http.Request, s report.Summary, f report.Format) {
	var b bytes.Buffer
	if err := report.Write(&b, s, f); err != nil {
		captureException(r, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Bytes())
}

func captureException(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
