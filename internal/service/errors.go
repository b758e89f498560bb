package service

import (
	"errors"
	"fmt"
)

// Errors every Service implementation reports, matched with errors.Is.
var (
	// ErrUnauthorized means the backend rejected the session (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRequestFailed means the backend answered but refused the call.
	ErrRequestFailed = errors.New("request failed")

	// ErrNetwork means no usable response came back.
	ErrNetwork = errors.New("network error")
)

// RequestError is a failed call with the backend's reason, if any.
type RequestError struct {
	Status int    // HTTP status, 0 for transport failures
	Detail string // user-facing message
	kind   error
	cause  error
}

// NewRequestError builds a RequestError of the given kind (one of the
// sentinel errors above).
func NewRequestError(kind error, status int, detail string, cause error) *RequestError {
	return &RequestError{Status: status, Detail: detail, kind: kind, cause: cause}
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d)", e.Detail, e.Status)
	}
	return e.Detail
}

// Is reports whether target is the kind of this error.
func (e *RequestError) Is(target error) bool {
	return target == e.kind
}

func (e *RequestError) Unwrap() error {
	return e.cause
}
