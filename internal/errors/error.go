package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryInvariant Category = "invariant"
	CategoryApply     Category = "apply"
	CategoryDocument  Category = "document"
	CategoryConfig    Category = "config"
	CategoryStore     Category = "store"
	CategoryProtocol  Category = "protocol"
	CategoryCLI       Category = "cli"
)

// ListError is a structured error with a code, explanation and documentation link.
type ListError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type (invariant, apply, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ListError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ListError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a *ListError with the same code.
func (e *ListError) Is(target error) bool {
	t, ok := target.(*ListError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ListError) WithSuggestion(s string) *ListError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ListError) WithDetail(d string) *ListError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted explanation to the error.
func (e *ListError) WithDetailf(format string, args ...any) *ListError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *ListError) Wrap(err error) *ListError {
	e.Wrapped = err
	return e
}

// New creates a ListError from a registered error code.
func New(code string) *ListError {
	template, ok := registry[code]
	if !ok {
		return &ListError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ListError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new ListError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ListError {
	return &ListError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ListError.
func FromError(err error, code string) *ListError {
	if err == nil {
		return nil
	}
	var le *ListError
	if stderrors.As(err, &le) {
		return le
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err (or anything it wraps) is a ListError with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &ListError{Code: code})
}

// CodeOf returns the code of the first ListError in err's chain, or "".
func CodeOf(err error) string {
	var le *ListError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ""
}
