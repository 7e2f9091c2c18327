// Package retry provides the retry policy shared by the AWS service clients.
//
// The delivery system does not retry on its own: trigger and diff failures are
// surfaced to the caller. This package exists so a caller that does want SDK
// level retries (e.g. the CLI) can opt into exponential backoff that only
// retries throttling.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
)

// Default backoff parameters.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 100 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// throttlingCodes are the AWS error codes treated as transient.
var throttlingCodes = map[string]bool{
	"ThrottlingException":                    true,
	"Throttling":                             true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"ProvisionedThroughputExceededException": true,
}

// IsThrottle reports whether err is an AWS throttling error.
func IsThrottle(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return throttlingCodes[apiErr.ErrorCode()]
	}
	return false
}

// CustomRetryer implements aws.Retryer with exponential backoff and jitter,
// retrying throttling errors only.
//
// Thread Safety: all fields are immutable after construction.
type CustomRetryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var _ aws.Retryer = (*CustomRetryer)(nil)

// New returns a CustomRetryer. Non-positive arguments fall back to the defaults.
func New(maxAttempts int, baseDelay, maxDelay time.Duration) *CustomRetryer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &CustomRetryer{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}
}

// NoRetry returns a retryer that makes exactly one attempt.
//
//nolint:ireturn // AWS SDK v2 uses interface for flexibility and testability
func NoRetry() aws.Retryer {
	return aws.NopRetryer{}
}

// MaxAttempts returns the maximum number of attempts, including the first.
func (r *CustomRetryer) MaxAttempts() int {
	return r.maxAttempts
}

// RetryDelay returns baseDelay * 2^(attempt-1) with ±25% jitter, capped at maxDelay.
func (r *CustomRetryer) RetryDelay(attempt int, _ error) (time.Duration, error) {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay

	jitterRange := int64(float64(delay) * 0.25)
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

// IsErrorRetryable retries throttling only. Context errors and every other
// API error are permanent.
func (r *CustomRetryer) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return IsThrottle(err)
}

// GetRetryToken always grants a retry token.
func (r *CustomRetryer) GetRetryToken(context.Context, error) (func(error) error, error) {
	return func(error) error { return nil }, nil
}

// GetInitialToken returns a no-op release function.
func (r *CustomRetryer) GetInitialToken() func(error) error {
	return func(error) error { return nil }
}
