package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries an HTTP status and a stable machine-readable code alongside
// the wrapped cause. Handlers map it straight onto the response.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const (
	CodeNotFound       = "not_found"
	CodeDuplicateKey   = "duplicate_key"
	CodeOrphanChild    = "orphan_child"
	CodeValidation     = "validation_failed"
	CodeNotImplemented = "not_implemented"
	CodeUpstream       = "upstream_error"
	CodeStorage        = "storage_error"
)

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return NotFound(fmt.Errorf(format, args...))
}

func DuplicateKey(err error) *Error {
	return New(http.StatusConflict, CodeDuplicateKey, err)
}

func DuplicateKeyf(format string, args ...interface{}) *Error {
	return DuplicateKey(fmt.Errorf(format, args...))
}

// OrphanChild marks a child-record write whose owning artifact does not exist.
func OrphanChildf(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodeOrphanChild, fmt.Errorf(format, args...))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotImplementedf(format string, args ...interface{}) *Error {
	return New(http.StatusNotImplemented, CodeNotImplemented, fmt.Errorf(format, args...))
}

func Upstream(status int, err error) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return New(status, CodeUpstream, err)
}

func Storage(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorage, err)
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
