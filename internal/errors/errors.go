// Package errors provides structured error types for the Parqstat system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryDecode     ErrorCategory = "DECODE"
	ErrCategoryFilter     ErrorCategory = "FILTER"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidPath       = "INVALID_PATH"
	CodeInvalidProjection = "INVALID_PROJECTION"
	CodeInvalidConfig     = "INVALID_CONFIG"

	// Storage codes
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeListFailed     = "LIST_FAILED"
	CodeOpenFailed     = "OPEN_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Decode codes
	CodeKindMismatch    = "KIND_MISMATCH"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeCorruptValue    = "CORRUPT_VALUE"

	// Filter codes
	CodeMissingColumn = "MISSING_COLUMN"
	CodeBadPredicate  = "BAD_PREDICATE"

	// Catalog codes
	CodeRegisterFailed = "REGISTER_FAILED"
	CodeQueryFailed    = "QUERY_FAILED"
	CodeFileNotFound   = "FILE_NOT_FOUND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// ParqstatError is the structured error type used throughout the system.
type ParqstatError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *ParqstatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ParqstatError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *ParqstatError) Is(target error) bool {
	var t *ParqstatError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new ParqstatError.
func New(category ErrorCategory, code, message string) *ParqstatError {
	return &ParqstatError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new ParqstatError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *ParqstatError {
	return &ParqstatError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var pe *ParqstatError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a ParqstatError.
func GetCategory(err error) ErrorCategory {
	var pe *ParqstatError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a ParqstatError.
func GetCode(err error) string {
	var pe *ParqstatError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only transient
// storage conditions qualify; retry policy itself belongs to the caller.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeListFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *ParqstatError {
	return New(ErrCategoryValidation, code, message)
}

func NewStorageError(code, message string, cause error) *ParqstatError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewDecodeError(code, message string) *ParqstatError {
	return New(ErrCategoryDecode, code, message)
}

func NewFilterError(code, message string) *ParqstatError {
	return New(ErrCategoryFilter, code, message)
}

func NewCatalogError(code, message string, cause error) *ParqstatError {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewInternalError(message string, cause error) *ParqstatError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
