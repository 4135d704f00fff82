// internal/pkg/apperrors/errors.go
package apperrors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_FAILED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeDuplicate         Code = "DUPLICATE_RESOURCE"
	CodeInternal          Code = "INTERNAL"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeRateLimit         Code = "RATE_LIMITED"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
)

// Metadata describes how a code is surfaced over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "invalid status transition",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeDuplicate: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "resource already exists",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Retryable:     true,
		PublicMessage: "rate limit exceeded",
	},
	CodeIdempotency: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "idempotency key reused",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error returned by every domain service.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost typed error in the chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether any typed error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var typed *Error
		if !stdErrors.As(err, &typed) {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}

// CodeOf returns the code of the outermost typed error, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}

// Internal wraps an unexpected persistence or infrastructure failure.
func Internal(err error, message string) *Error {
	if typed := As(err); typed != nil {
		return typed
	}
	return Wrap(CodeInternal, err, message)
}

func NotFound(resource string) *Error {
	return Newf(CodeNotFound, "%s not found", resource)
}
