package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/dolt-app/app"
	"github.com/onnwee/dolt-app/db"
	"github.com/onnwee/dolt-app/telemetry"
)

// ErrorKind is the closed set of failure categories a handler can report.
type ErrorKind int

const (
	// ErrorKindConfig means an upstream client handle could not be constructed.
	ErrorKindConfig ErrorKind = iota
	// ErrorKindUpstreamUnavailable means the upstream could not be reached or failed mid-call.
	ErrorKindUpstreamUnavailable
	// ErrorKindQueryRejected means the statement was refused, locally or by the server.
	ErrorKindQueryRejected
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfig:
		return "config_error"
	case ErrorKindUpstreamUnavailable:
		return "upstream_unavailable"
	case ErrorKindQueryRejected:
		return "query_rejected"
	default:
		return "unknown"
	}
}

// Status is the HTTP status code for the kind.
func (k ErrorKind) Status() int {
	if k == ErrorKindQueryRejected {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified handler failure. Message is what the client sees as detail.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Classify maps an upstream call failure to its kind. Requests that carry no input
// can only fail with ErrorKindConfig or ErrorKindUpstreamUnavailable.
func Classify(err error) ErrorKind {
	if errors.Is(err, app.ErrDoltUnavailable) || errors.Is(err, app.ErrIdentityUnavailable) {
		return ErrorKindConfig
	}
	return ErrorKindUpstreamUnavailable
}

// ClassifyStatement is Classify for statements built from client input: an invalid
// name or a statement the server refuses is ErrorKindQueryRejected.
func ClassifyStatement(err error) ErrorKind {
	if db.IsQueryRejected(err) {
		return ErrorKindQueryRejected
	}
	return Classify(err)
}

// writeError logs the failure and writes {"detail": message} with the kind's status.
func writeError(w http.ResponseWriter, r *http.Request, e *Error) {
	telemetry.LoggerWithCorr(r.Context()).Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("kind", e.Kind.String()),
		slog.Any("err", e.Cause),
		slog.String("component", "http"))
	writeJSON(w, e.Kind.Status(), map[string]string{"detail": e.Message})
}
