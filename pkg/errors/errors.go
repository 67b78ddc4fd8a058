// Package errors holds the lexicon's sentinel errors and AppError, which
// carries a client-facing message and HTTP status alongside a sentinel.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRootNotFound       = errors.New("root not found")
	ErrDictionaryNotFound = errors.New("dictionary not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// statuses maps sentinels to HTTP statuses, checked in order.
var statuses = []struct {
	err    error
	status int
}{
	{ErrRootNotFound, http.StatusNotFound},
	{ErrDictionaryNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrStoreUnavailable, http.StatusServiceUnavailable},
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// Invalid reports a rejected request parameter.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

// Is and As are re-exported so callers importing this package under the
// name errors keep the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// HTTPStatusCode picks the status for err: an AppError's own status, else
// the status of the first sentinel it wraps, else 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
