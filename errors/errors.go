package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Stage Error Constructors ---

// MissingTransform creates a new AppError for a stage built without a transform.
func MissingTransform() *AppError {
	return &AppError{
		Code: ErrCodeMissingTransform, Message: "A transform callback is required.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// InvalidTransform creates a new AppError for a transform argument that cannot be called.
func InvalidTransform(got any) *AppError {
	return &AppError{
		Code: ErrCodeInvalidTransform, Message: fmt.Sprintf("Transform must be a function, got %T.", got),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"type": fmt.Sprintf("%T", got)},
	}
}

// StageClosed creates a new AppError for an operation the stage state does not accept.
func StageClosed(stage, operation, state string) *AppError {
	return &AppError{
		Code: ErrCodeStageClosed, Message: fmt.Sprintf("Stage %s cannot %s while %s.", stage, operation, state),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"stage": stage, "operation": operation, "state": state},
	}
}

// ModeMismatch creates a new AppError for a unit whose shape does not match the stage mode.
func ModeMismatch(mode string, unit any) *AppError {
	return &AppError{
		Code: ErrCodeModeMismatch, Message: fmt.Sprintf("A %s stage cannot ingest %T.", mode, unit),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"mode": mode, "type": fmt.Sprintf("%T", unit)},
	}
}

// InvalidResult creates a new AppError for a transform result that does not match the stage mode.
func InvalidResult(mode, kind string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidResult, Message: fmt.Sprintf("A %s stage cannot emit a %s result.", mode, kind),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"mode": mode, "result": kind},
	}
}

// AggregateTooLarge creates a new AppError for an aggregate that exceeded its bound.
func AggregateTooLarge(limit, size int) *AppError {
	return &AppError{
		Code: ErrCodeAggregateTooLarge, Message: fmt.Sprintf("Aggregate of %d exceeds the limit of %d.", size, limit),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"limit": limit, "size": size},
	}
}

// Aborted creates a new AppError for a stage aborted before completion.
func Aborted(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeAborted, Message: fmt.Sprintf("Stage %s was aborted.", stage),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"stage": stage}, Cause: cause,
	}
}

// TransformFailed creates a new AppError around an uncoded error raised by a transform.
// The cause's text becomes the message so clients see what the transform reported.
func TransformFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransformFailed, Message: cause.Error(),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false, Cause: cause,
	}
}

// Timeout creates a new AppError for a wait that did not finish in time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Busy creates a new AppError for work rejected because every slot is taken.
func Busy(resource string, limit int) *AppError {
	return &AppError{
		Code: ErrCodeBusy, Message: fmt.Sprintf("Too many concurrent %s requests.", resource),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"resource": resource, "limit": limit},
	}
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
