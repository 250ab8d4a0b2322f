package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Taxonomy codes are stable, machine-readable and never change meaning
// once shipped.
const (
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodePreconditionFail = "precondition_failed"
	CodeProviderError    = "provider_error"
	CodeBudgetExhausted  = "budget_exhausted"
	CodeMirrorError      = "mirror_error"
	CodeInternal         = "internal"
)

// Sentinels support errors.Is for the common cases; richer context
// should be attached with New() instead of returning these directly.
var (
	ErrNotFound           = errors.New(CodeNotFound)
	ErrConflict           = errors.New(CodeConflict)
	ErrValidation         = errors.New(CodeValidation)
	ErrPreconditionFailed = errors.New(CodePreconditionFail)
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func PreconditionFailed(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodePreconditionFail, err)
}

func Provider(err error) *Error {
	return New(http.StatusBadGateway, CodeProviderError, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
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
