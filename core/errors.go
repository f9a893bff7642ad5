package core

import "github.com/pkg/errors"

// ErrorKind classifies errors surfaced to callers.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindDuplicateCode      ErrorKind = "duplicate_code"
	KindNotFound           ErrorKind = "not_found"
	KindAggregationFailure ErrorKind = "aggregation_failure"
	KindPersistenceFailure ErrorKind = "persistence_failure"
	KindUpstreamFailure    ErrorKind = "upstream_failure"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FailureError is an infrastructure failure (storage, aggregation...).
// Err is for logs only: callers must never expose it.
type FailureError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func NewPersistenceFailure(op string, err error) error {
	return &FailureError{Kind: KindPersistenceFailure, Op: op, Err: err}
}

func NewAggregationFailure(op string, err error) error {
	return &FailureError{Kind: KindAggregationFailure, Op: op, Err: err}
}

func (err *FailureError) Error() string {
	if err.Err == nil {
		return string(err.Kind) + ": " + err.Op
	}
	return string(err.Kind) + ": " + err.Op + ": " + err.Err.Error()
}

func (err *FailureError) Unwrap() error { return err.Err }

// Message is the caller-safe description of the failure.
func (err *FailureError) Message() string {
	switch err.Kind {
	case KindAggregationFailure:
		return "could not compute student metrics"
	case KindUpstreamFailure:
		return "the advisor is unavailable, try again later"
	default:
		return "could not save or load data"
	}
}

// AsFailure unwraps err down to a *FailureError, if any.
func AsFailure(err error) (*FailureError, bool) {
	var ferr *FailureError
	if errors.As(err, &ferr) {
		return ferr, true
	}
	return nil, false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
