package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestScribeError_Error(t *testing.T) {
	err := &ScribeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "document not found",
	}

	expected := "NOT_FOUND: document not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("document is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "document is required" {
		t.Errorf("Message = %q, want %q", err.Message, "document is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("interview.txt")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["document"] != "interview.txt" {
		t.Errorf("Details[document] = %v, want %q", err.Details["document"], "interview.txt")
	}
}

func TestNewAlreadyExists(t *testing.T) {
	err := NewAlreadyExists("out.md")

	if err.Code != ErrAlreadyExists {
		t.Errorf("Code = %q, want %q", err.Code, ErrAlreadyExists)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("format")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "format cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "format cancelled")
	}
}

func TestNewChunkingInvariant(t *testing.T) {
	err := NewChunkingInvariant("zero-length chunk", map[string]any{"index": 3})

	if err.Code != ErrChunkingInvariant {
		t.Errorf("Code = %q, want %q", err.Code, ErrChunkingInvariant)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Details["index"] != 3 {
		t.Errorf("Details[index] = %v, want 3", err.Details["index"])
	}
}

func TestNewTransformFailed_Unwraps(t *testing.T) {
	cause := stderrors.New("rate limited")
	err := NewTransformFailed(2, cause)

	if err.Code != ErrTransformFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrTransformFailed)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "rate limited" {
		t.Errorf("Message = %q, want %q", err.Message, "rate limited")
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Details["chunk_index"] != 2 {
		t.Errorf("Details[chunk_index] = %v, want 2", err.Details["chunk_index"])
	}
}

func TestNewTransformFailed_NilCause(t *testing.T) {
	err := NewTransformFailed(0, nil)
	if err.Message != "transform failed" {
		t.Errorf("Message = %q, want %q", err.Message, "transform failed")
	}
}

func TestNewRetrievalUnavailable(t *testing.T) {
	err := NewRetrievalUnavailable(stderrors.New("db closed"))

	if err.Code != ErrRetrievalUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrRetrievalUnavailable)
	}
	if err.Message != "retrieval unavailable: db closed" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"with error", stderrors.New("disk full"), "disk full"},
		{"nil error", nil, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInternal(tt.err)
			if err.Code != ErrInternal {
				t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestIs(t *testing.T) {
	notFound := NewNotFound("a.txt")
	wrapped := fmt.Errorf("items[0]: %w", notFound)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct match", notFound, ErrNotFound, true},
		{"wrapped match", wrapped, ErrNotFound, true},
		{"code mismatch", notFound, ErrInternal, false},
		{"plain error", stderrors.New("x"), ErrNotFound, false},
		{"nil error", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NewNotFound("x.md"))

	sErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() should find ScribeError")
	}
	if sErr.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", sErr.Code, ErrNotFound)
	}

	if _, ok := As(stderrors.New("plain")); ok {
		t.Error("As() should not match plain error")
	}
}
