package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Scribe error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"              // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"                    // 404
	ErrAlreadyExists         ErrorCode = "ALREADY_EXISTS"               // 409
	ErrCancelled             ErrorCode = "CANCELLED"                    // 499
	ErrChunkingInvariant     ErrorCode = "CHUNKING_INVARIANT_VIOLATION" // 500
	ErrInternal              ErrorCode = "INTERNAL"                     // 500
	ErrTransformFailed       ErrorCode = "TRANSFORM_FAILED"             // 502
	ErrRetrievalUnavailable  ErrorCode = "RETRIEVAL_UNAVAILABLE"        // 503
	ErrTransformUnconfigured ErrorCode = "TRANSFORM_UNCONFIGURED"       // 503
)

// ScribeError represents a structured error with code, status, and details.
type ScribeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *ScribeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ScribeError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ScribeError {
	return &ScribeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a document name that does not resolve.
func NewNotFound(name string) *ScribeError {
	return &ScribeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("document not found: %s", name),
		Details: map[string]any{"document": name},
	}
}

// NewAlreadyExists creates a 409 error when a save would overwrite an existing document.
func NewAlreadyExists(name string) *ScribeError {
	return &ScribeError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("document already exists: %s", name),
		Details: map[string]any{"document": name},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by the caller.
func NewCancelled(op string) *ScribeError {
	return &ScribeError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewChunkingInvariant creates a 500 error when the splitter produced an
// invalid partition (zero-length chunk, gap, overlap or lost bytes).
func NewChunkingInvariant(msg string, details map[string]any) *ScribeError {
	return &ScribeError{
		Code:    ErrChunkingInvariant,
		Status:  500,
		Message: msg,
		Details: details,
	}
}

// NewTransformFailed creates a 502 error for a failed per-chunk transform.
// index is the 0-based chunk index.
func NewTransformFailed(index int, cause error) *ScribeError {
	msg := "transform failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &ScribeError{
		Code:    ErrTransformFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"chunk_index": index},
		cause:   cause,
	}
}

// NewTransformUnconfigured creates a 503 error when no LLM client is available.
func NewTransformUnconfigured() *ScribeError {
	return &ScribeError{
		Code:    ErrTransformUnconfigured,
		Status:  503,
		Message: "no LLM client configured; set llm.api_key_env in config and export the key",
	}
}

// NewRetrievalUnavailable creates a 503 error when the passage index cannot serve a search.
func NewRetrievalUnavailable(cause error) *ScribeError {
	msg := "retrieval unavailable"
	if cause != nil {
		msg = fmt.Sprintf("retrieval unavailable: %v", cause)
	}
	return &ScribeError{
		Code:    ErrRetrievalUnavailable,
		Status:  503,
		Message: msg,
		cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ScribeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ScribeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ScribeError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ScribeError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As reports whether err wraps a ScribeError and returns it.
func As(err error) (*ScribeError, bool) {
	var sErr *ScribeError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}
