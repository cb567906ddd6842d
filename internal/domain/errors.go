package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for HTTP mapping and retry decisions
type ErrorKind string

const (
	KindClient       ErrorKind = "client"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindUpstream     ErrorKind = "upstream"
	KindPersistence  ErrorKind = "persistence"
	KindPipeline     ErrorKind = "pipeline"
)

// Error is a classified failure carrying an HTTP status and optional detail
// (for upstream errors, the platform's error body)
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the error maps to
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindClient:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NewClientError(message string) *Error {
	return &Error{Kind: KindClient, Message: message}
}

func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewUpstreamError wraps a non-2xx platform response. A zero or
// non-error status defaults to 400.
func NewUpstreamError(status int, message string, details any) *Error {
	if status < 400 {
		status = http.StatusBadRequest
	}
	return &Error{Kind: KindUpstream, Status: status, Message: message, Details: details}
}

func NewPersistenceError(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func NewPipelineError(message string, err error) *Error {
	return &Error{Kind: KindPipeline, Message: message, Err: err}
}

// AsError extracts a classified error from err's chain
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// StatusOf maps any error to an HTTP status, defaulting to 500
func StatusOf(err error) int {
	if de, ok := AsError(err); ok {
		return de.HTTPStatus()
	}
	return http.StatusInternalServerError
}
