package domain

import (
	"errors"
	"fmt"
)

var (
	ErrHTTPStatus    = errors.New("upstream returned non-success status")
	ErrTransport     = errors.New("upstream request failed")
	ErrParse         = errors.New("upstream returned malformed joke")
	ErrMissingFields = errors.New("setup and punchline are required")
)

// ErrorKind classifies why a fetch failed. It never reaches the user.
type ErrorKind string

const (
	ErrorKindHTTPStatus ErrorKind = "http_status"
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindParse      ErrorKind = "parse"
)

// FetchError carries the diagnostic detail of a failed fetch.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func NewHTTPStatusError(status int, err error) *FetchError {
	return &FetchError{Kind: ErrorKindHTTPStatus, StatusCode: status, Err: err}
}

func NewTransportError(err error) *FetchError {
	return &FetchError{Kind: ErrorKindTransport, Err: err}
}

func NewParseError(err error) *FetchError {
	return &FetchError{Kind: ErrorKindParse, Err: err}
}

func (e *FetchError) Error() string {
	msg := e.sentinel().Error()
	if e.Kind == ErrorKindHTTPStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *FetchError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *FetchError) sentinel() error {
	switch e.Kind {
	case ErrorKindHTTPStatus:
		return ErrHTTPStatus
	case ErrorKindParse:
		return ErrParse
	default:
		return ErrTransport
	}
}

// ErrorKindOf classifies err. Errors that are not FetchErrors count as
// transport failures.
func ErrorKindOf(err error) ErrorKind {
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, ErrHTTPStatus):
		return ErrorKindHTTPStatus
	case errors.Is(err, ErrParse), errors.Is(err, ErrMissingFields):
		return ErrorKindParse
	default:
		return ErrorKindTransport
	}
}
