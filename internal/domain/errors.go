package domain

import "errors"

// ErrorKind is the closed set of failure categories surfaced to callers
type ErrorKind string

const (
	KindValidation            ErrorKind = "VALIDATION"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindInsufficientHistory   ErrorKind = "INSUFFICIENT_HISTORY"
	KindDegenerateSeasonality ErrorKind = "DEGENERATE_SEASONALITY"
	KindParse                 ErrorKind = "PARSE"
	KindInternal              ErrorKind = "INTERNAL"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientHistory   = errors.New("insufficient history")
	ErrDegenerateSeasonality = errors.New("degenerate seasonality")
	ErrParse                 = errors.New("parse error")
	ErrInternal              = errors.New("internal error")
)

// KindOf classifies err. Anything outside the taxonomy is INTERNAL.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientHistory):
		return KindInsufficientHistory
	case errors.Is(err, ErrDegenerateSeasonality):
		return KindDegenerateSeasonality
	case errors.Is(err, ErrParse):
		return KindParse
	default:
		return KindInternal
	}
}
