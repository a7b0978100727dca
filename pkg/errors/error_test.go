package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := New(LanguageNotSupported)
	if err.Error() != LanguageNotSupported.Message() {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if err.Stack == "" {
		t.Fatalf("expected stack to be captured")
	}
	if got := New(ErrorCode(99999)).Error(); got != "Unknown error" {
		t.Fatalf("unexpected message for unknown code: %q", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, JudgeSystemError)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
	if err.Error() != "disk full" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if Wrap(nil, JudgeSystemError) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if Wrapf(nil, JudgeSystemError, "x") != nil {
		t.Fatalf("expected nil for nil error")
	}

	existing := New(InvalidParams)
	if again := Wrap(existing, ValidationFailed); again != existing || again.Code != ValidationFailed {
		t.Fatalf("expected existing error to be re-coded in place")
	}
}

func TestGetCodeAndIs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(JudgeQueueFull))
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{name: "nil", err: nil, code: Success},
		{name: "plain", err: fmt.Errorf("boom"), code: InternalServerError},
		{name: "direct", err: New(CodeTooLarge), code: CodeTooLarge},
		{name: "nested", err: wrapped, code: JudgeQueueFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Fatalf("GetCode = %d, want %d", got, tt.code)
			}
		})
	}

	if !Is(wrapped, JudgeQueueFull) {
		t.Fatalf("expected Is to see through wrapping")
	}
	if Is(wrapped, JudgeSystemError) || Is(nil, JudgeQueueFull) || Is(fmt.Errorf("x"), InternalServerError) {
		t.Fatalf("unexpected Is match")
	}
}

func TestGetError(t *testing.T) {
	if GetError(nil) != nil {
		t.Fatalf("expected nil")
	}
	plain := GetError(fmt.Errorf("boom"))
	if plain.Code != InternalServerError || plain.Message != "boom" {
		t.Fatalf("unexpected wrap: %+v", plain)
	}
	typed := New(OutputParseFailed)
	if GetError(typed) != typed {
		t.Fatalf("expected same error")
	}
}

func TestDetailsAndMessages(t *testing.T) {
	err := ValidationError("language", "required")
	if err.Details["field"] != "language" || err.Details["reason"] != "required" {
		t.Fatalf("unexpected details: %v", err.Details)
	}
	err = (&Error{Code: InvalidParams}).WithDetails(map[string]interface{}{"a": 1})
	if err.Details["a"] != 1 {
		t.Fatalf("expected detail to be set on empty map")
	}
	if err.Error() != InvalidParams.Message() {
		t.Fatalf("expected default message fallback, got %q", err.Error())
	}
	if msg := New(InvalidParams).WithMessagef("bad %s", "input").Error(); msg != "bad input" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := NotFoundError("language").Error(); msg != "language not found" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if InternalError(nil).Code != InternalServerError {
		t.Fatalf("unexpected code")
	}
	if BadRequest("nope").Code != InvalidParams {
		t.Fatalf("unexpected code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{Success, 200},
		{NotFound, 404},
		{JudgeQueueFull, 429},
		{TooManyRequests, 429},
		{SandboxUnavailable, 503},
		{ServiceUnavailable, 503},
		{Timeout, 504},
		{RequiredFieldEmpty, 400},
		{LanguageNotSupported, 400},
		{CodeTooLarge, 400},
		{UnsupportedValueShape, 400},
		{JudgeSystemError, 500},
		{OutputParseFailed, 500},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
