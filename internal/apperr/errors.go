// Package apperr provides the structured error type shared by the task store,
// the conversation proxy and the HTTP surface.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Code is a stable, machine-readable error identifier. Clients branch on it.
type Code string

const (
	CodeValidation       Code = "VALIDATION_FAILED"
	CodeNotFound         Code = "TASK_NOT_FOUND"
	CodeAuthRejected     Code = "AUTH_REJECTED"
	CodeProviderAuth     Code = "PROVIDER_AUTH_REJECTED"
	CodeQuotaExceeded    Code = "QUOTA_EXCEEDED"
	CodeConfigMissing    Code = "CONFIG_MISSING"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeProviderFailed   Code = "PROVIDER_FAILED"
	CodeInternal         Code = "INTERNAL"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
)

// Category groups codes for HTTP status mapping.
type Category int

const (
	CategoryInternal Category = iota
	CategoryBadRequest
	CategoryNotFound
	CategoryUnauthorized
	CategoryPaymentRequired
	CategoryBadGateway
	CategoryUnavailable
	CategoryMethodNotAllowed
)

var codeCategories = map[Code]Category{
	CodeValidation:       CategoryBadRequest,
	CodeNotFound:         CategoryNotFound,
	CodeAuthRejected:     CategoryUnauthorized,
	CodeProviderAuth:     CategoryUnauthorized,
	CodeQuotaExceeded:    CategoryPaymentRequired,
	CodeConfigMissing:    CategoryInternal,
	CodeStoreUnavailable: CategoryUnavailable,
	CodeProviderFailed:   CategoryBadGateway,
	CodeInternal:         CategoryInternal,
	CodeMethodNotAllowed: CategoryMethodNotAllowed,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryBadRequest:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryPaymentRequired:
		return http.StatusPaymentRequired
	case CategoryBadGateway:
		return http.StatusBadGateway
	case CategoryUnavailable:
		return http.StatusServiceUnavailable
	case CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error returned across component boundaries.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Category returns the category of the error's code.
func (e *Error) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryInternal
}

// HTTPStatus returns the HTTP status for the error.
func (e *Error) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates an error with the given code, message and cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// --- Constructors ---

// Validation reports malformed or missing caller input.
func Validation(msg string) *Error {
	return New(CodeValidation, msg)
}

// NotFound reports a task that does not exist under the caller's ownership.
// The message never says which of the two cases applied.
func NotFound() *Error {
	return New(CodeNotFound, "Todo not found")
}

// AuthRejected reports a request whose identity could not be resolved.
func AuthRejected(msg string, cause error) *Error {
	return Wrap(CodeAuthRejected, msg, cause)
}

// ConfigMissing reports a required server-side setting that is absent.
func ConfigMissing(msg string) *Error {
	return New(CodeConfigMissing, msg)
}

// StoreUnavailable reports a storage connectivity failure.
func StoreUnavailable(cause error) *Error {
	return Wrap(CodeStoreUnavailable, "task store unavailable", cause)
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrValidation       = &Error{Code: CodeValidation}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrAuthRejected     = &Error{Code: CodeAuthRejected}
	ErrProviderAuth     = &Error{Code: CodeProviderAuth}
	ErrQuotaExceeded    = &Error{Code: CodeQuotaExceeded}
	ErrConfigMissing    = &Error{Code: CodeConfigMissing}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable}
	ErrProviderFailed   = &Error{Code: CodeProviderFailed}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus returns the HTTP status for any error.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
