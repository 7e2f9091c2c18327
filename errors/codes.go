// Package errors provides the error handling foundation for the delivery system.
// It extends Go's standard error handling with structured error codes, retry
// classification and context preservation for structured logging.
package errors

// ErrorCode represents a specific error condition in the delivery system.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Dispatch errors.

	// CodeDiffUnavailable indicates the diff provider could not resolve the
	// repository or revision pair of a change event. Nothing is triggered.
	CodeDiffUnavailable ErrorCode = "DIFF_UNAVAILABLE"

	// CodeRouteTriggerFailed indicates one or more matched routes could not
	// start their pipeline execution.
	CodeRouteTriggerFailed ErrorCode = "ROUTE_TRIGGER_FAILED"

	// Rollout errors.

	// CodeStageFailed indicates a Build or Deploy stage action failed and the
	// pipeline run halted at that stage.
	CodeStageFailed ErrorCode = "STAGE_FAILED"

	// CodeApprovalRejected indicates an operator rejected a gated deploy.
	CodeApprovalRejected ErrorCode = "APPROVAL_REJECTED"

	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Permission errors.

	// CodeForbidden indicates the caller lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeConfigLoadFailed indicates a configuration file could not be read or parsed.
	CodeConfigLoadFailed ErrorCode = "CONFIG_LOAD_FAILED"

	// CodeConfigDecodeFailed indicates a configuration value could not be decoded.
	CodeConfigDecodeFailed ErrorCode = "CONFIG_DECODE_FAILED"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the rate limit has been exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Execution errors.

	// CodeExecutionFailed indicates a general execution failure.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnavailable indicates the service is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// retryableCodes lists the codes that describe transient conditions.
var retryableCodes = map[ErrorCode]bool{
	CodeNetwork:     true,
	CodeTimeout:     true,
	CodeRateLimit:   true,
	CodeUnavailable: true,
}

// String returns the string representation of the ErrorCode.
func (c ErrorCode) String() string {
	return string(c)
}

// Retryable reports whether errors with this code describe a transient condition.
// The delivery system never retries on its own; callers use this to decide.
func (c ErrorCode) Retryable() bool {
	return retryableCodes[c]
}
