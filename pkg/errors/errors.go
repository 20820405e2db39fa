// Package errors defines the sentinel errors shared across SmartRead and maps
// them to HTTP status codes.
//
// The recommendation core has no fatal conditions. Its sentinels describe
// distinct empty outcomes so callers can tell "no data loaded" from "invalid
// query" from "nothing to say".
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoData means the corpus is empty or the filter left no candidates.
	ErrNoData = errors.New("no passages available")
	// ErrInvalidQuery means the query normalised to nothing usable.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoSignal means the TF-IDF vector space could not be built from the
	// query and candidates. It is recoverable.
	ErrNoSignal = errors.New("no signal")
	// ErrTranslationUnavailable means the translation collaborator is
	// disabled or failing.
	ErrTranslationUnavailable = errors.New("translation unavailable")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal error")
	ErrTimeout                = errors.New("operation timed out")
)

// AppError attaches a user-facing message and status code to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsEmptyOutcome reports whether err is one of the recoverable "nothing to
// recommend" conditions rather than a failure.
func IsEmptyOutcome(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrNoSignal)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoSignal):
		return http.StatusOK
	case errors.Is(err, ErrTranslationUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
