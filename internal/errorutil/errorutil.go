package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for trace records that can't be
// decoded. Callers are expected to skip the record and keep going.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents situations in which a trace produced nothing to report.
var ErrNoResults = errors.New("no results returned")
