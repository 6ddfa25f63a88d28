package core

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrorKind tags every error leaving a service with the category the presentation layer acts on.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindUpstream      ErrorKind = "upstream"
	KindAuthorization ErrorKind = "authorization"
	KindInternal      ErrorKind = "internal"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return strings.Join(msgs, "; ")
}

// HasField reports whether a field error was recorded for fld.
func (err *ValidationError) HasField(fld string) bool {
	for _, f := range err.Fields {
		if f.Field == fld {
			return true
		}
	}
	return false
}

// notFound is implemented by the not found sentinels of the domain packages.
type notFound interface {
	NotFound() bool
}

// NotFoundError is returned when a lookup by PIN or id yields nothing.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{msg: msg}
}

func (err *NotFoundError) Error() string  { return err.msg }
func (err *NotFoundError) NotFound() bool { return true }

// UpstreamError wraps a failed record store or object store call.
// The cause is logged, callers only ever see a generic retryable failure.
type UpstreamError struct {
	Op  string
	Err error
}

func NewUpstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func (err *UpstreamError) Error() string {
	if err.Err == nil {
		return err.Op
	}
	return err.Op + ": " + err.Err.Error()
}

func (err *UpstreamError) Cause() error { return err.Err }

// AuthorizationError is a tenant scope violation.
type AuthorizationError struct {
	msg string
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{msg: msg}
}

func (err *AuthorizationError) Error() string { return err.msg }

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

// KindOf walks the wrapped chain of err and returns its category.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for e := err; e != nil; {
		switch v := e.(type) {
		case *ValidationError, validator.ValidationErrors:
			return KindValidation
		case *AuthorizationError:
			return KindAuthorization
		case *UpstreamError:
			return KindUpstream
		case notFound:
			if v.NotFound() {
				return KindNotFound
			}
		}
		cause, ok := e.(interface{ Cause() error })
		if !ok {
			if u, ok := e.(interface{ Unwrap() error }); ok {
				e = u.Unwrap()
				continue
			}
			break
		}
		e = cause.Cause()
	}
	return KindInternal
}
