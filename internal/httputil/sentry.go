package httputil

import (
	"strconv"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTPStatusCodeTag is the name of the HTTP status code tag.
	HTTPStatusCodeTag = "http.response.status_code"
	FormatTag         = "kernelplot.format"
)

// TagTransaction sets the status code and the requested output format on
// the top-level transaction of a request.
func TagTransaction(e *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil {
		return e
	}
	if e.Tags == nil {
		e.Tags = make(map[string]string)
	}
	if hint.Response != nil {
		if _, exists := e.Tags[HTTPStatusCodeTag]; !exists {
			e.Tags[HTTPStatusCodeTag] = strconv.Itoa(hint.Response.StatusCode)
		}
	}
	if hint.Request != nil {
		if f := hint.Request.URL.Query().Get("format"); f != "" {
			e.Tags[FormatTag] = f
		}
	}
	return e
}
