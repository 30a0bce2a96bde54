package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Stage construction errors
const (
	// ErrCodeMissingTransform indicates a stage was built without a transform callback.
	ErrCodeMissingTransform ErrorCode = "MISSING_TRANSFORM"
	// ErrCodeInvalidTransform indicates the transform argument is not callable.
	ErrCodeInvalidTransform ErrorCode = "INVALID_TRANSFORM"
)

// Stage lifecycle errors
const (
	// ErrCodeStageClosed indicates an operation was attempted in a state that does not accept it.
	ErrCodeStageClosed ErrorCode = "STAGE_CLOSED"
	// ErrCodeModeMismatch indicates a unit's shape does not match the stage mode.
	ErrCodeModeMismatch ErrorCode = "MODE_MISMATCH"
	// ErrCodeInvalidResult indicates a transform result does not match the stage mode.
	ErrCodeInvalidResult ErrorCode = "INVALID_RESULT"
	// ErrCodeAggregateTooLarge indicates the aggregate exceeded its configured bound.
	ErrCodeAggregateTooLarge ErrorCode = "AGGREGATE_TOO_LARGE"
	// ErrCodeAborted indicates the stage was aborted before completing.
	ErrCodeAborted ErrorCode = "ABORTED"
	// ErrCodeTransformFailed indicates a transform raised an error that carries no code.
	ErrCodeTransformFailed ErrorCode = "TRANSFORM_FAILED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeTimeout indicates an operation timed out while waiting.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeBusy indicates no capacity was free to start the operation.
	ErrCodeBusy ErrorCode = "BUSY"
)

// Stages are single-shot; only waiting on a stage can be retried.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:  true,
	ErrCodeBusy:     true,
	ErrCodeInternal: false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
