package usage

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine failure.
type ErrorKind string

const (
	KindMalformedPeriod      ErrorKind = "malformed_period"
	KindUnknownMetricType    ErrorKind = "unknown_metric_type"
	KindNoReferenceData      ErrorKind = "no_reference_data"
	KindDegenerateProjection ErrorKind = "degenerate_projection"
	KindFiscalYearMismatch   ErrorKind = "fiscal_year_mismatch"
	KindInvalidCost          ErrorKind = "invalid_cost"
	KindUndefinedCostPerUse  ErrorKind = "undefined_cost_per_use"
	KindOverlappingPeriods   ErrorKind = "overlapping_periods"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrMalformedPeriod      = &Error{Kind: KindMalformedPeriod, Message: "malformed period"}
	ErrUnknownMetricType    = &Error{Kind: KindUnknownMetricType, Message: "unknown metric type"}
	ErrNoReferenceData      = &Error{Kind: KindNoReferenceData, Message: "no reference data"}
	ErrDegenerateProjection = &Error{Kind: KindDegenerateProjection, Message: "degenerate projection"}
	ErrFiscalYearMismatch   = &Error{Kind: KindFiscalYearMismatch, Message: "fiscal year mismatch"}
	ErrInvalidCost          = &Error{Kind: KindInvalidCost, Message: "invalid cost"}
	ErrUndefinedCostPerUse  = &Error{Kind: KindUndefinedCostPerUse, Message: "undefined cost per use"}
	ErrOverlappingPeriods   = &Error{Kind: KindOverlappingPeriods, Message: "overlapping periods"}
)

// Error is returned by every engine operation that can fail.
type Error struct {
	Kind    ErrorKind              `json:"kind"`
	Period  string                 `json:"period,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown usage error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Period != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind, e.Period, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newError(kind ErrorKind, period, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Period:  period,
		Message: fmt.Sprintf(format, args...),
	}
}

func malformed(period, format string, args ...interface{}) *Error {
	return newError(KindMalformedPeriod, period, format, args...)
}

// KindOf returns the kind of an engine error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
