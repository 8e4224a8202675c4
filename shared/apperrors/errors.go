// Package apperrors defines the typed failures surfaced by the core services.
// Each error carries a stable machine-readable code and a human message; the
// wrapped cause is for logs only and never reaches API clients.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeDuplicateCode           Code = "DUPLICATE_CODE"
	CodeInvalidParent           Code = "INVALID_PARENT"
	CodeInvalidQuery            Code = "INVALID_QUERY"
	CodeTenantRequired          Code = "TENANT_REQUIRED"
	CodeConcurrencyConflict     Code = "CONCURRENCY_CONFLICT"
	CodeHasChildren             Code = "HAS_CHILDREN"
	CodeOrganizationInUse       Code = "ORGANIZATION_IN_USE"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeHierarchyInconsistent   Code = "HIERARCHY_INCONSISTENT"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeInternal                Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can compare against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrDuplicateCode           = &Error{Code: CodeDuplicateCode, Message: "code already exists"}
	ErrInvalidParent           = &Error{Code: CodeInvalidParent, Message: "invalid parent organization"}
	ErrInvalidQuery            = &Error{Code: CodeInvalidQuery, Message: "invalid query"}
	ErrTenantRequired          = &Error{Code: CodeTenantRequired, Message: "tenant context is required"}
	ErrConcurrencyConflict     = &Error{Code: CodeConcurrencyConflict, Message: "resource was modified concurrently"}
	ErrHasChildren             = &Error{Code: CodeHasChildren, Message: "organization has child organizations"}
	ErrOrganizationInUse       = &Error{Code: CodeOrganizationInUse, Message: "organization is referenced by other records"}
	ErrInvalidStatusTransition = &Error{Code: CodeInvalidStatusTransition, Message: "status transition not allowed"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrHierarchyInconsistent   = &Error{Code: CodeHierarchyInconsistent, Message: "organization hierarchy is inconsistent"}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized, Message: "authentication required"}
)

func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(entity string, key interface{}) *Error {
	return New(CodeNotFound, "%s %v not found", entity, key)
}

func DuplicateCode(code string) *Error {
	return New(CodeDuplicateCode, "an organization with code %q already exists", code)
}

func InvalidParent(format string, args ...interface{}) *Error {
	return New(CodeInvalidParent, format, args...)
}

func InvalidQuery(format string, args ...interface{}) *Error {
	return New(CodeInvalidQuery, format, args...)
}

func TenantRequired(operation string) *Error {
	return New(CodeTenantRequired, "%s requires a tenant context", operation)
}

func ConcurrencyConflict(entity string, key interface{}) *Error {
	return New(CodeConcurrencyConflict, "%s %v was modified by another request", entity, key)
}

func HasChildren(key interface{}) *Error {
	return New(CodeHasChildren, "organization %v still has child organizations", key)
}

func Validation(err error) *Error {
	return Wrap(CodeValidation, err, "request validation failed")
}

func HierarchyInconsistent(format string, args ...interface{}) *Error {
	return New(CodeHierarchyInconsistent, format, args...)
}

// CodeOf returns the code of the first *Error in the chain, or INTERNAL_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns a client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateCode, CodeConcurrencyConflict, CodeHasChildren,
		CodeOrganizationInUse, CodeInvalidStatusTransition:
		return http.StatusConflict
	case CodeInvalidParent, CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeInvalidQuery:
		return http.StatusBadRequest
	case CodeTenantRequired:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
