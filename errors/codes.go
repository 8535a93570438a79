package errors

// ErrorCode identifies a specific failure type.
type ErrorCode string

// Error codes for gate and backend construction failures.
const (
	// ErrCodeMissingCredential means the environment credential for the
	// selected backend was absent at construction time.
	ErrCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"

	// ErrCodeInvalidConfig means a construction parameter was malformed
	// or missing.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeBackendFailure means the underlying provider call failed.
	// The gate never produces this itself; it is available to callers
	// that want to classify provider errors.
	ErrCodeBackendFailure ErrorCode = "BACKEND_FAILURE"

	// ErrCodeCanceled means the operation was canceled by its caller.
	ErrCodeCanceled ErrorCode = "CANCELED"

	// ErrCodeInternal means an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}
