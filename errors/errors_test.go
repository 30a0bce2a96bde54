package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_StageClosed_Details(t *testing.T) {
	err := StageClosed("s1", "write", "closed")
	if err.Code != ErrCodeStageClosed {
		t.Errorf("expected STAGE_CLOSED, got %s", err.Code)
	}
	if err.Details["stage"] != "s1" || err.Details["operation"] != "write" || err.Details["state"] != "closed" {
		t.Errorf("unexpected details %v", err.Details)
	}
	if !strings.Contains(err.Message, "cannot write") {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAppError_InvalidTransform_ReportsType(t *testing.T) {
	err := InvalidTransform(42)
	if err.Details["type"] != "int" {
		t.Errorf("expected type=int, got %v", err.Details["type"])
	}
}

func TestAppError_Aborted_Cause(t *testing.T) {
	cause := fmt.Errorf("shutdown")
	err := Aborted("s1", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected Aborted to wrap its cause")
	}
	if !strings.Contains(err.Error(), "shutdown") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := NotFound("chain", "x").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["resource"] != "chain" {
		t.Error("expected original details to be preserved")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized")
	}
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Internal(cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if MissingTransform().Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"MissingTransform", MissingTransform(), ErrCodeMissingTransform, http.StatusInternalServerError},
		{"InvalidTransform", InvalidTransform("x"), ErrCodeInvalidTransform, http.StatusInternalServerError},
		{"ModeMismatch", ModeMismatch("binary", 1), ErrCodeModeMismatch, http.StatusBadRequest},
		{"InvalidResult", InvalidResult("object", "bytes"), ErrCodeInvalidResult, http.StatusInternalServerError},
		{"AggregateTooLarge", AggregateTooLarge(4, 8), ErrCodeAggregateTooLarge, http.StatusRequestEntityTooLarge},
		{"Aborted", Aborted("s", nil), ErrCodeAborted, http.StatusServiceUnavailable},
		{"MissingField", MissingField("name"), ErrCodeMissingField, http.StatusBadRequest},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"InvalidInput", InvalidInput("chain", "empty"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"TransformFailed", TransformFailed(fmt.Errorf("Aouch!")), ErrCodeTransformFailed, http.StatusUnprocessableEntity},
		{"Busy", Busy("transform", 4), ErrCodeBusy, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Retryable {
				t.Errorf("%s should not be retryable", tc.code)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := NotFound("chain", "42")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code NOT_FOUND in response, got %s", resp.Error.Code)
	}
	if resp.Error.Details["id"] != "42" {
		t.Error("expected id=42 in response details")
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", StageClosed("s", "end", "closed"))
	if !HasCode(wrapped, ErrCodeStageClosed) {
		t.Error("expected HasCode to see through wrapping")
	}
	if HasCode(wrapped, ErrCodeAborted) {
		t.Error("expected HasCode to reject a different code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeInternal) {
		t.Error("expected HasCode to reject plain errors")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
	orig := MissingTransform()
	if Wrap(fmt.Errorf("outer: %w", orig)) != orig {
		t.Error("Wrap should unwrap to the original AppError")
	}
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal || got.Cause != plain {
		t.Errorf("expected INTERNAL_ERROR wrapping the plain error, got %v", got)
	}
}
