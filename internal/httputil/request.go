package httputil

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QueryParameters reads the required and optional query parameters of the
// request. Optional parameters fall back to their default when blank. If a
// required parameter is missing, it writes a 400 with the reason and returns
// false. The returned logger carries every parameter as a field.
func QueryParameters(w http.ResponseWriter, r *http.Request, required []string, optional map[string]string) (map[string]string, zerolog.Logger, bool) {
	query := r.URL.Query()
	params := make(map[string]string, len(required)+len(optional))
	logger := log.With().Str("path", r.URL.Path)
	for _, key := range required {
		value := query.Get(key)
		if value == "" {
			http.Error(w, fmt.Sprintf("expected %s query parameter", key), http.StatusBadRequest)
			return nil, zerolog.Nop(), false
		}
		params[key] = value
		logger = logger.Str(key, value)
	}
	for key, def := range optional {
		value := query.Get(key)
		if value == "" {
			value = def
		}
		params[key] = value
		logger = logger.Str(key, value)
	}
	return params, logger.Logger(), true
}
