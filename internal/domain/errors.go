package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies pipeline errors so callers can decide between retrying,
// fixing their input, or paging someone about configuration.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindConfiguration     Kind = "configuration"
	KindImageProcessing   Kind = "image_processing"
	KindUpstreamTransient Kind = "upstream_transient"
	KindUpstreamFatal     Kind = "upstream_fatal"
	KindTimeout           Kind = "timeout"
)

// Error is the uniform error carried through the generation pipeline. The
// message and details are safe to surface to API clients; credentials and
// local file paths must never be placed in either.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind onto its HTTP-equivalent status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindImageProcessing:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamTransient, KindUpstreamFatal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError constructs a pipeline error of the given kind.
func NewError(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// WrapError attaches an underlying cause to a new pipeline error.
func WrapError(kind Kind, message string, err error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details, Err: err}
}

// WithStage returns a copy of err carrying stage attribution. Non-pipeline
// errors are wrapped as upstream_fatal so nothing escapes the taxonomy; the
// kind of an existing pipeline error is never altered here.
func WithStage(err error, stage string) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		clone := *perr
		clone.Stage = stage
		return &clone
	}
	return &Error{Kind: KindUpstreamFatal, Stage: stage, Message: err.Error(), Err: err}
}

// IsKind reports whether err is a pipeline error of the given kind.
func IsKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}
